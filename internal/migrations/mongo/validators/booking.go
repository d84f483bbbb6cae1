package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"phone",
			"datetime",
			"createdAt",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"email": bson.M{
				"bsonType": "string",
			},

			"phone": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{10}$`,
			},

			"datetime": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"createdAt": bson.M{
				"bsonType": "date",
			},
		},
	},
}
