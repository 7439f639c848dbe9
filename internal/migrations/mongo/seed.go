package mongo

import (
	"context"
	"fmt"

	"campushub/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// seedUsers are the accounts a fresh deployment starts with. The admin
// is expected to change these from the directory page.
var seedUsers = []model.User{
	{ID: "1", Username: "admin", PIN: "1234", Role: model.RoleAdmin},
	{ID: "2", Username: "user1", PIN: "1111", Role: model.RoleUser},
	{ID: "3", Username: "user2", PIN: "2222", Role: model.RoleUser},
}

// RunSeed inserts the starter accounts if the directory is empty. A
// populated directory is left alone.
func RunSeed(ctx context.Context, client *mongo.Client, dbName string) error {
	coll := client.Database(dbName).Collection("Users")

	count, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		fmt.Printf("Directory already has %d users, skipping seed\n", count)
		return nil
	}

	docs := make([]any, 0, len(seedUsers))
	for _, user := range seedUsers {
		docs = append(docs, user)
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	fmt.Printf("Seeded %d starter users\n", len(seedUsers))
	return nil
}
