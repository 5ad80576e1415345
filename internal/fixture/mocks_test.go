package fixture

import (
	"context"
	"sync"
)

// mockControlClient is a hand-rolled fake of the control plane client.
// Each method records its call and delegates to an optional hook; without a
// hook it returns canned values.
type mockControlClient struct {
	mu    sync.Mutex
	calls []string

	loginAdminFunc    func(ctx context.Context, email, password string) (string, error)
	loginUserFunc     func(ctx context.Context, email, password string) (string, error)
	createUserFunc    func(ctx context.Context, adminToken, name, email, password string) (string, error)
	deleteUserFunc    func(ctx context.Context, adminToken, userID string) (string, error)
	createThingFunc   func(ctx context.Context, userToken, name, key string) (string, error)
	deleteThingFunc   func(ctx context.Context, userToken, thingID string) (string, error)
	getThingTokenFunc func(ctx context.Context, userToken, thingID string) (string, error)
}

func (m *mockControlClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// callLog returns a copy of the recorded call sequence.
func (m *mockControlClient) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockControlClient) LoginAdmin(ctx context.Context, email, password string) (string, error) {
	m.record("loginAdmin")
	if m.loginAdminFunc != nil {
		return m.loginAdminFunc(ctx, email, password)
	}
	return "admin-token", nil
}

func (m *mockControlClient) LoginUser(ctx context.Context, email, password string) (string, error) {
	m.record("loginUser")
	if m.loginUserFunc != nil {
		return m.loginUserFunc(ctx, email, password)
	}
	return "user-token", nil
}

func (m *mockControlClient) CreateUser(ctx context.Context, adminToken, name, email, password string) (string, error) {
	m.record("createUser")
	if m.createUserFunc != nil {
		return m.createUserFunc(ctx, adminToken, name, email, password)
	}
	return "user-1", nil
}

func (m *mockControlClient) DeleteUser(ctx context.Context, adminToken, userID string) (string, error) {
	m.record("deleteUser")
	if m.deleteUserFunc != nil {
		return m.deleteUserFunc(ctx, adminToken, userID)
	}
	return userID, nil
}

func (m *mockControlClient) CreateThing(ctx context.Context, userToken, name, key string) (string, error) {
	m.record("createThing")
	if m.createThingFunc != nil {
		return m.createThingFunc(ctx, userToken, name, key)
	}
	return "thing-1", nil
}

func (m *mockControlClient) DeleteThing(ctx context.Context, userToken, thingID string) (string, error) {
	m.record("deleteThing")
	if m.deleteThingFunc != nil {
		return m.deleteThingFunc(ctx, userToken, thingID)
	}
	return thingID, nil
}

func (m *mockControlClient) GetThingToken(ctx context.Context, userToken, thingID string) (string, error) {
	m.record("getThingToken")
	if m.getThingTokenFunc != nil {
		return m.getThingTokenFunc(ctx, userToken, thingID)
	}
	return "thing-token", nil
}
