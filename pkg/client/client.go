package client

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Client owns the long-lived connections of a service. The hosting shell
// creates it, connects what it needs and shuts it down.
type Client struct {
	Mongo *MongoClient
}

func NewClient() *Client {
	return &Client{}
}

// MongoHandle returns the raw driver client, or nil when Mongo is not in use.
func (c *Client) MongoHandle() *mongo.Client {
	if c.Mongo == nil {
		return nil
	}
	return c.Mongo.Client
}

func (c *Client) GracefulShutdown(ctx context.Context) error {
	if c.Mongo == nil {
		return nil
	}
	return c.Mongo.Disconnect(ctx)
}
