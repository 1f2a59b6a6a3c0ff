package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeDynamo struct {
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	deletes []*dynamodb.DeleteItemInput
	queries []*dynamodb.QueryInput
	batches []*dynamodb.BatchWriteItemInput

	putErr     error
	getOut     *dynamodb.GetItemOutput
	queryPages []*dynamodb.QueryOutput
	scanPages  []*dynamodb.ScanOutput
	batchOut   *dynamodb.BatchWriteItemOutput
	updateOut  *dynamodb.UpdateItemOutput
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return f.updateOut, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	page := f.queryPages[0]
	f.queryPages = f.queryPages[1:]
	return page, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	page := f.scanPages[0]
	f.scanPages = f.scanPages[1:]
	return page, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batches = append(f.batches, in)
	return f.batchOut, nil
}

func avS(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func TestDynamoStore(t *testing.T) {
	Convey("Given a DynamoDB store on a fake client", t, func() {
		fake := &fakeDynamo{}
		s := NewDynamoStore(fake, WithConsistentReads(true))
		ctx := context.Background()

		Convey("When putting with a must-not-exist guard", func() {
			err := s.Put(ctx, contractTable, slotItem("EVENT#A", "POS#01", 1), MustNotExist())

			Convey("Then a condition expression is sent", func() {
				So(err, ShouldBeNil)
				So(fake.puts, ShouldHaveLength, 1)
				So(aws.ToString(fake.puts[0].TableName), ShouldEqual, "Scores")
				So(aws.ToString(fake.puts[0].ConditionExpression), ShouldContainSubstring, "attribute_not_exists")
			})
		})

		Convey("When the conditional check fails", func() {
			fake.putErr = &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
			err := s.Put(ctx, contractTable, slotItem("EVENT#A", "POS#01", 1), MustExist())

			So(errors.Is(err, ErrConditionFailed), ShouldBeTrue)
		})

		Convey("When putting without conditions", func() {
			So(s.Put(ctx, contractTable, slotItem("EVENT#A", "POS#01", 1)), ShouldBeNil)
			So(fake.puts[0].ConditionExpression, ShouldBeNil)
		})

		Convey("When getting a missing item", func() {
			_, err := s.Get(ctx, contractTable, Key{Partition: "EVENT#A", Sort: "POS#01"})
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("When getting a stored item", func() {
			fake.getOut = &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
				"EventID":    avS("EVENT#A"),
				"PositionID": avS("POS#01"),
				"Position":   &types.AttributeValueMemberN{Value: "1"},
			}}
			it, err := s.Get(ctx, contractTable, Key{Partition: "EVENT#A", Sort: "POS#01"})

			So(err, ShouldBeNil)
			pos, ok := intValue(it, "Position")
			So(ok, ShouldBeTrue)
			So(pos, ShouldEqual, 1)
		})

		Convey("When a query spans two pages", func() {
			fake.queryPages = []*dynamodb.QueryOutput{
				{
					Items: []map[string]types.AttributeValue{
						{"EventID": avS("EVENT#A"), "PositionID": avS("POS#01")},
					},
					LastEvaluatedKey: map[string]types.AttributeValue{
						"EventID": avS("EVENT#A"), "PositionID": avS("POS#01"),
					},
				},
				{Items: []map[string]types.AttributeValue{
					{"EventID": avS("EVENT#A"), "PositionID": avS("POS#02")},
				}},
			}
			items, err := s.Query(ctx, contractTable, "EVENT#A", "POS#")

			Convey("Then both pages are returned in order", func() {
				So(err, ShouldBeNil)
				So(sortKeys(items), ShouldResemble, []string{"POS#01", "POS#02"})
				So(fake.queries, ShouldHaveLength, 2)
				So(aws.ToString(fake.queries[0].KeyConditionExpression), ShouldContainSubstring, "begins_with")
				So(fake.queries[1].ExclusiveStartKey, ShouldNotBeEmpty)
				So(aws.ToBool(fake.queries[0].ConsistentRead), ShouldBeTrue)
			})
		})

		Convey("When scanning with a filter", func() {
			fake.scanPages = []*dynamodb.ScanOutput{{Items: []map[string]types.AttributeValue{
				{"EventID": avS("EVENT#A"), "PositionID": avS("POS#01"), "SchoolName": avS("SOE")},
				{"EventID": avS("EVENT#A"), "PositionID": avS("POS#02"), "SchoolName": avS("SOL")},
			}}}
			items, err := s.Scan(ctx, contractTable, func(it Item) bool { return it["SchoolName"] == "SOL" })

			So(err, ShouldBeNil)
			So(sortKeys(items), ShouldResemble, []string{"POS#02"})
		})

		Convey("When a batch leaves items unprocessed", func() {
			fake.batchOut = &dynamodb.BatchWriteItemOutput{
				UnprocessedItems: map[string][]types.WriteRequest{
					"Scores": {{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{
						"EventID": avS("EVENT#A"), "PositionID": avS("POS#02"),
					}}}},
				},
			}
			unprocessed, err := s.BatchWrite(ctx, contractTable, []Item{
				slotItem("EVENT#A", "POS#01", 1),
				slotItem("EVENT#A", "POS#02", 2),
			})

			Convey("Then they are surfaced to the caller", func() {
				So(err, ShouldBeNil)
				So(sortKeys(unprocessed), ShouldResemble, []string{"POS#02"})
				So(fake.batches[0].RequestItems["Scores"], ShouldHaveLength, 2)
			})
		})

		Convey("When a batch is too large", func() {
			items := make([]Item, MaxBatchSize+1)
			_, err := s.BatchWrite(ctx, contractTable, items)

			So(errors.Is(err, ErrBatchTooLarge), ShouldBeTrue)
			So(fake.batches, ShouldBeEmpty)
		})

		Convey("When updating with a guard", func() {
			fake.updateOut = &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
				"clearId": avS("u1"), "chestNumber": avS("123"),
			}}
			users := Table{Name: "Users", PartitionKey: "clearId"}
			it, err := s.Update(ctx, users, Key{Partition: "u1"}, map[string]any{"chestNumber": "123", "clearId": "ignored"}, MustExist())

			Convey("Then a SET expression with the condition is sent", func() {
				So(err, ShouldBeNil)
				So(it["chestNumber"], ShouldEqual, "123")
				in := fake.updates[0]
				So(aws.ToString(in.UpdateExpression), ShouldStartWith, "SET")
				So(aws.ToString(in.ConditionExpression), ShouldContainSubstring, "attribute_exists")
				So(in.ReturnValues, ShouldEqual, types.ReturnValueAllNew)
			})
		})

		Convey("When deleting with attribute guards", func() {
			err := s.Delete(ctx, contractTable, Key{Partition: "EVENT#A", Sort: "POS#01"},
				AttributesEqual(map[string]any{"ChestNo": "101", "StudentName": "Asha"}))

			So(err, ShouldBeNil)
			cond := aws.ToString(fake.deletes[0].ConditionExpression)
			So(cond, ShouldContainSubstring, "attribute_exists")
			So(cond, ShouldContainSubstring, "AND")
			So(fake.deletes[0].ExpressionAttributeValues, ShouldHaveLength, 2)
		})

		So(s.Driver(), ShouldEqual, "dynamodb")
	})
}

func TestOpenDynamoSettings(t *testing.T) {
	Convey("Given dynamodb settings", t, func() {
		t.Setenv("AWS_ACCESS_KEY_ID", "local")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "local")
		s := Settings{Driver: "dynamodb", DynamoRegion: "us-east-1", DynamoEndpoint: "http://localhost:8000"}

		for _, consistent := range []bool{true, false} {
			s.DynamoConsistentReads = consistent
			store, err := Open(context.Background(), s)
			So(err, ShouldBeNil)

			ds, ok := store.(*DynamoStore)
			So(ok, ShouldBeTrue)
			So(ds.consistent, ShouldEqual, consistent)
		}
	})
}
