// test/mock/neo4j.go
package mock

import (
	"net/url"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"
)

var (
	_ neo4j.Driver      = (*MockDriver)(nil)
	_ neo4j.Session     = (*MockSession)(nil)
	_ neo4j.Transaction = (*MockTransaction)(nil)
	_ neo4j.Result      = (*MockResult)(nil)
)

// MockDriver is a mock implementation of neo4j.Driver
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) NewSession(config neo4j.SessionConfig) neo4j.Session {
	args := m.Called(config)
	return args.Get(0).(neo4j.Session)
}

func (m *MockDriver) VerifyConnectivity() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDriver) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDriver) Target() url.URL {
	args := m.Called()
	return args.Get(0).(url.URL)
}

func (m *MockDriver) IsEncrypted() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockSession is a mock implementation of neo4j.Session
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Run(cypher string, params map[string]any, configurers ...func(*neo4j.TransactionConfig)) (neo4j.Result, error) {
	args := m.Called(cypher, params, configurers)
	result, _ := args.Get(0).(neo4j.Result)
	return result, args.Error(1)
}

func (m *MockSession) ReadTransaction(work neo4j.TransactionWork, configurers ...func(*neo4j.TransactionConfig)) (interface{}, error) {
	args := m.Called(work, configurers)
	return args.Get(0), args.Error(1)
}

func (m *MockSession) WriteTransaction(work neo4j.TransactionWork, configurers ...func(*neo4j.TransactionConfig)) (interface{}, error) {
	args := m.Called(work, configurers)
	return args.Get(0), args.Error(1)
}

func (m *MockSession) BeginTransaction(configurers ...func(*neo4j.TransactionConfig)) (neo4j.Transaction, error) {
	args := m.Called(configurers)
	transaction, _ := args.Get(0).(neo4j.Transaction)
	return transaction, args.Error(1)
}

func (m *MockSession) LastBookmark() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSession) LastBookmarks() neo4j.Bookmarks {
	args := m.Called()
	bookmarks, _ := args.Get(0).(neo4j.Bookmarks)
	return bookmarks
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTransaction is a mock implementation of neo4j.Transaction
type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Run(cypher string, params map[string]any) (neo4j.Result, error) {
	args := m.Called(cypher, params)
	result, _ := args.Get(0).(neo4j.Result)
	return result, args.Error(1)
}

func (m *MockTransaction) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTransaction) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTransaction) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockResult is a mock implementation of neo4j.Result
type MockResult struct {
	mock.Mock
}

func (m *MockResult) Keys() ([]string, error) {
	args := m.Called()
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *MockResult) NextRecord(record **neo4j.Record) bool {
	args := m.Called(record)
	return args.Bool(0)
}

func (m *MockResult) Next() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockResult) PeekRecord(record **neo4j.Record) bool {
	args := m.Called(record)
	return args.Bool(0)
}

func (m *MockResult) Peek() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockResult) Err() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockResult) Record() *neo4j.Record {
	args := m.Called()
	record, _ := args.Get(0).(*neo4j.Record)
	return record
}

func (m *MockResult) Collect() ([]*neo4j.Record, error) {
	args := m.Called()
	records, _ := args.Get(0).([]*neo4j.Record)
	return records, args.Error(1)
}

func (m *MockResult) Single() (*neo4j.Record, error) {
	args := m.Called()
	record, _ := args.Get(0).(*neo4j.Record)
	return record, args.Error(1)
}

func (m *MockResult) Consume() (neo4j.ResultSummary, error) {
	args := m.Called()
	summary, _ := args.Get(0).(neo4j.ResultSummary)
	return summary, args.Error(1)
}
