package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/xlink-api/internal/domain"
)

// SubdomainRepo provides typed DynamoDB operations for the subdomains table.
// The normalized label is the partition key, so two concurrent claims of the
// same name can never both succeed.
type SubdomainRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSubdomainRepo(client *dynamodb.Client, tableName string) *SubdomainRepo {
	return &SubdomainRepo{client: client, tableName: tableName}
}

func (r *SubdomainRepo) FindByName(ctx context.Context, name string) (*domain.SubdomainAssignment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("name", name),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("subdomain not found: %w", domain.ErrNotFound)
	}
	var a domain.SubdomainAssignment
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByOwner returns the owner's current binding via the owner-index GSI.
func (r *SubdomainRepo) FindByOwner(ctx context.Context, ownerID string) (*domain.SubdomainAssignment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("owner-index"),
		KeyConditionExpression: aws.String("owner_id = :o"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":o": &types.AttributeValueMemberS{Value: ownerID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("subdomain not found: %w", domain.ErrNotFound)
	}
	var a domain.SubdomainAssignment
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Claim atomically writes the binding for the owner. The put is conditional on
// the name being unclaimed (or already the owner's), and when the owner held a
// different name before, that row is released in the same transaction. A lost
// race surfaces as domain.ErrConflict, never as a half-applied write.
func (r *SubdomainRepo) Claim(ctx context.Context, a *domain.SubdomainAssignment, previousName string) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal subdomain assignment: %w", err)
	}

	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(#n) OR owner_id = :o"),
				ExpressionAttributeNames: map[string]string{
					"#n": "name",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":o": &types.AttributeValueMemberS{Value: a.OwnerID},
				},
			},
		},
	}
	if previousName != "" && previousName != a.Name {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName:           aws.String(r.tableName),
				Key:                 strKey("name", previousName),
				ConditionExpression: aws.String("attribute_not_exists(#n) OR owner_id = :o"),
				ExpressionAttributeNames: map[string]string{
					"#n": "name",
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":o": &types.AttributeValueMemberS{Value: a.OwnerID},
				},
			},
		})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &tce) || errors.As(err, &ccf) {
			return fmt.Errorf("subdomain already claimed: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// Deactivate flips active=false on the owner's binding without releasing the name.
func (r *SubdomainRepo) Deactivate(ctx context.Context, name, ownerID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("name", name),
		UpdateExpression:    aws.String("SET active = :f"),
		ConditionExpression: aws.String("owner_id = :o"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":f": &types.AttributeValueMemberBOOL{Value: false},
			":o": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("binding not owned by caller: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}
