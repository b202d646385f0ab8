// Package mongo implements store.Store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dee-mee/aquatrack"
	"github.com/dee-mee/aquatrack/account"
	"github.com/dee-mee/aquatrack/bill"
	"github.com/dee-mee/aquatrack/customer"
	"github.com/dee-mee/aquatrack/id"
	"github.com/dee-mee/aquatrack/metrics"
	aquastore "github.com/dee-mee/aquatrack/store"
	"github.com/dee-mee/aquatrack/types"
)

// Collection name constants.
const (
	colCustomers = "aquatrack_customers"
	colBills     = "aquatrack_bills"
	colUsers     = "aquatrack_users"
)

// Index names referenced when mapping duplicate-key errors.
const (
	idxCustomerAccount = "aquatrack_customers_account_idx"
	idxCustomerMeter   = "aquatrack_customers_meter_idx"
	idxUserEmail       = "aquatrack_users_email_idx"
)

// compile-time interface check
var _ aquastore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	db *mongo.Database
}

// New wraps an already-connected database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect dials the given URI and returns a store over dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("aquatrack/mongo: ping: %w", err)
	}
	return New(client.Database(dbName)), nil
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates the indexes backing uniqueness and common queries.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: %s indexes: %w", aquatrack.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	unique := options.Index().SetUnique(true)

	return map[string][]mongo.IndexModel{
		colCustomers: {
			{
				Keys:    bson.D{{Key: "account_number", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxCustomerAccount),
			},
			{
				Keys:    bson.D{{Key: "meter_number", Value: 1}},
				Options: options.Index().SetUnique(true).SetName(idxCustomerMeter),
			},
		},
		colBills: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "due_date", Value: -1}}},
		},
		colUsers: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: unique.SetName(idxUserEmail),
			},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close disconnects the underlying client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Client().Disconnect(ctx)
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	_, err := s.db.Collection(colCustomers).InsertOne(ctx, toCustomerModel(c))
	if err != nil {
		return mapCustomerWriteErr(err)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID id.CustomerID) (*customer.Customer, error) {
	return s.findCustomer(ctx, bson.M{"_id": customerID.String()})
}

func (s *Store) GetCustomerByAccount(ctx context.Context, accountNumber string) (*customer.Customer, error) {
	return s.findCustomer(ctx, bson.M{"account_number": accountNumber})
}

func (s *Store) findCustomer(ctx context.Context, filter bson.M) (*customer.Customer, error) {
	var m customerModel
	err := s.db.Collection(colCustomers).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, aquatrack.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("aquatrack/mongo: get customer: %w", err)
	}
	return fromCustomerModel(&m)
}

func (s *Store) ListCustomers(ctx context.Context, opts customer.ListOpts) ([]*customer.Customer, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "account_number", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
		if opts.Offset > 0 {
			findOpts = findOpts.SetSkip(int64(opts.Offset))
		}
	}

	cur, err := s.db.Collection(colCustomers).Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list customers: %w", err)
	}
	defer cur.Close(ctx)

	var models []customerModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list customers: %w", err)
	}

	result := make([]*customer.Customer, len(models))
	for i := range models {
		c, err := fromCustomerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int64, error) {
	return s.db.Collection(colCustomers).CountDocuments(ctx, bson.M{})
}

func (s *Store) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	m := toCustomerModel(c)
	res, err := s.db.Collection(colCustomers).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return mapCustomerWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return aquatrack.ErrCustomerNotFound
	}
	return nil
}

func (s *Store) DeleteCustomer(ctx context.Context, customerID id.CustomerID) (int64, error) {
	billsRes, err := s.db.Collection(colBills).DeleteMany(ctx, bson.M{"customer_id": customerID.String()})
	if err != nil {
		return 0, fmt.Errorf("aquatrack/mongo: delete customer bills: %w", err)
	}

	res, err := s.db.Collection(colCustomers).DeleteOne(ctx, bson.M{"_id": customerID.String()})
	if err != nil {
		return 0, fmt.Errorf("aquatrack/mongo: delete customer: %w", err)
	}
	if res.DeletedCount == 0 {
		return 0, aquatrack.ErrCustomerNotFound
	}
	return billsRes.DeletedCount, nil
}

// ==================== Bill Store ====================

func (s *Store) CreateBill(ctx context.Context, b *bill.Bill) error {
	// No foreign keys here, so verify the customer exists first.
	if _, err := s.GetCustomer(ctx, b.CustomerID); err != nil {
		return err
	}
	if _, err := s.db.Collection(colBills).InsertOne(ctx, toBillModel(b)); err != nil {
		return fmt.Errorf("aquatrack/mongo: create bill: %w", err)
	}
	return nil
}

func (s *Store) GetBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	var m billModel
	err := s.db.Collection(colBills).FindOne(ctx, bson.M{"_id": billID.String()}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, aquatrack.ErrBillNotFound
		}
		return nil, fmt.Errorf("aquatrack/mongo: get bill: %w", err)
	}
	return fromBillModel(&m)
}

func (s *Store) ListBillsForCustomer(ctx context.Context, customerID id.CustomerID, opts bill.ListOpts) ([]*bill.Bill, error) {
	filter := bson.M{"customer_id": customerID.String()}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "due_date", Value: -1}, {Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
		if opts.Offset > 0 {
			findOpts = findOpts.SetSkip(int64(opts.Offset))
		}
	}

	cur, err := s.db.Collection(colBills).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list bills: %w", err)
	}
	defer cur.Close(ctx)

	var models []billModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list bills: %w", err)
	}

	result := make([]*bill.Bill, len(models))
	for i := range models {
		b, err := fromBillModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

func (s *Store) ListAllBills(ctx context.Context, opts bill.ListOpts) ([]*bill.WithCustomer, error) {
	match := bson.M{}
	if opts.Status != "" {
		match["status"] = string(opts.Status)
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "due_date", Value: -1},
			{Key: "created_at", Value: -1},
		}}},
	}
	if opts.Limit > 0 {
		if opts.Offset > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(opts.Offset)}})
		}
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(opts.Limit)}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         colCustomers,
			"localField":   "customer_id",
			"foreignField": "_id",
			"as":           "customer",
		}}},
		bson.D{{Key: "$unwind", Value: "$customer"}},
	)

	cur, err := s.db.Collection(colBills).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list all bills: %w", err)
	}
	defer cur.Close(ctx)

	type joinedRow struct {
		billModel `bson:",inline"`
		Customer  customerModel `bson:"customer"`
	}

	var rows []joinedRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list all bills: %w", err)
	}

	result := make([]*bill.WithCustomer, len(rows))
	for i := range rows {
		b, err := fromBillModel(&rows[i].billModel)
		if err != nil {
			return nil, err
		}
		result[i] = &bill.WithCustomer{
			Bill:                  *b,
			CustomerName:          rows[i].Customer.Name,
			CustomerAccountNumber: rows[i].Customer.AccountNumber,
		}
	}
	return result, nil
}

func (s *Store) UpdateBill(ctx context.Context, b *bill.Bill) error {
	m := toBillModel(b)
	res, err := s.db.Collection(colBills).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("aquatrack/mongo: update bill: %w", err)
	}
	if res.MatchedCount == 0 {
		return aquatrack.ErrBillNotFound
	}
	return nil
}

func (s *Store) DeleteBill(ctx context.Context, billID id.BillID) error {
	res, err := s.db.Collection(colBills).DeleteOne(ctx, bson.M{"_id": billID.String()})
	if err != nil {
		return fmt.Errorf("aquatrack/mongo: delete bill: %w", err)
	}
	if res.DeletedCount == 0 {
		return aquatrack.ErrBillNotFound
	}
	return nil
}

func (s *Store) ApproveBill(ctx context.Context, billID id.BillID) (*bill.Bill, error) {
	b, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	b.Approve()
	b.Touch()
	if err := s.UpdateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) MarkBillPaid(ctx context.Context, billID id.BillID, paidAt time.Time, paymentRef string) (*bill.Bill, error) {
	b, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b.Status == bill.StatusPaid {
		return b, aquatrack.ErrBillAlreadyPaid
	}
	if !b.MarkPaid(paidAt, paymentRef) {
		return b, aquatrack.ErrBillNotApproved
	}
	b.Touch()
	if err := s.UpdateBill(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *account.User) error {
	_, err := s.db.Collection(colUsers).InsertOne(ctx, toUserModel(u))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return aquatrack.ErrDuplicateEmail
		}
		return fmt.Errorf("aquatrack/mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, accountID id.AccountID) (*account.User, error) {
	return s.findUser(ctx, bson.M{"_id": accountID.String()})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*account.User, error) {
	var m userModel
	err := s.db.Collection(colUsers).FindOne(ctx, filter).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, aquatrack.ErrAccountNotFound
		}
		return nil, fmt.Errorf("aquatrack/mongo: get user: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) ListAdmins(ctx context.Context) ([]*account.User, error) {
	cur, err := s.db.Collection(colUsers).Find(ctx,
		bson.M{"role": string(account.RoleAdmin)},
		options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list admins: %w", err)
	}
	defer cur.Close(ctx)

	var models []userModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: list admins: %w", err)
	}

	result := make([]*account.User, len(models))
	for i := range models {
		u, err := fromUserModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *account.User) error {
	m := toUserModel(u)
	res, err := s.db.Collection(colUsers).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return aquatrack.ErrDuplicateEmail
		}
		return fmt.Errorf("aquatrack/mongo: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return aquatrack.ErrAccountNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, accountID id.AccountID) error {
	res, err := s.db.Collection(colUsers).DeleteOne(ctx, bson.M{"_id": accountID.String()})
	if err != nil {
		return fmt.Errorf("aquatrack/mongo: delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return aquatrack.ErrAccountNotFound
	}
	return nil
}

// ==================== Metrics Store ====================

func (s *Store) DashboardStats(ctx context.Context) (*metrics.DashboardStats, error) {
	stats := &metrics.DashboardStats{}

	total, err := s.db.Collection(colCustomers).CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: dashboard stats: %w", err)
	}
	stats.TotalCustomers = total

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"approved": true,
			"status": bson.M{"$in": []string{
				string(bill.StatusUnpaid), string(bill.StatusOverdue),
			}},
		}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":      nil,
			"count":    bson.M{"$sum": 1},
			"total":    bson.M{"$sum": "$amount_due_cents"},
			"currency": bson.M{"$max": "$currency"},
		}}},
	}

	cur, err := s.db.Collection(colBills).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: dashboard stats: %w", err)
	}
	defer cur.Close(ctx)

	var agg []struct {
		Count    int64  `bson:"count"`
		Total    int64  `bson:"total"`
		Currency string `bson:"currency"`
	}
	if err := cur.All(ctx, &agg); err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: dashboard stats: %w", err)
	}

	currency := "kes"
	if len(agg) > 0 {
		stats.BillsAwaitingPayment = agg[0].Count
		if agg[0].Currency != "" {
			currency = agg[0].Currency
		}
		stats.TotalOutstanding = types.Money{Amount: agg[0].Total, Currency: currency}
		return stats, nil
	}
	stats.TotalOutstanding = types.Zero(currency)
	return stats, nil
}

func (s *Store) MeterMetrics(ctx context.Context) ([]*metrics.MeterMetric, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         colBills,
			"localField":   "_id",
			"foreignField": "customer_id",
			"as":           "bills",
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"meter_number":   1,
			"name":           1,
			"account_number": 1,
			"total":          bson.M{"$sum": "$bills.consumption"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "total", Value: -1},
			{Key: "meter_number", Value: 1},
		}}},
	}

	cur, err := s.db.Collection(colCustomers).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: meter metrics: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		MeterNumber   string `bson:"meter_number"`
		Name          string `bson:"name"`
		AccountNumber string `bson:"account_number"`
		Total         int64  `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("aquatrack/mongo: meter metrics: %w", err)
	}

	result := make([]*metrics.MeterMetric, len(rows))
	for i, r := range rows {
		result[i] = &metrics.MeterMetric{
			MeterNumber:           r.MeterNumber,
			CustomerName:          r.Name,
			CustomerAccountNumber: r.AccountNumber,
			TotalConsumption:      r.Total,
		}
	}
	return result, nil
}

// ==================== Helpers ====================

func mapCustomerWriteErr(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("aquatrack/mongo: write customer: %w", err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, idxCustomerAccount):
		return aquatrack.ErrDuplicateAccountNumber
	case strings.Contains(msg, idxCustomerMeter):
		return aquatrack.ErrDuplicateMeterNumber
	}
	return aquatrack.ErrAlreadyExists
}
