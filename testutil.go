package tutorchat

import (
	"context"
	"fmt"
	"sync"

	"github.com/tutorchat-dev/tutorchat/internal/api"
)

// MockBackend is a mock implementation of the platform API for
// testing. It satisfies the backend interfaces of every package in
// the engine.
type MockBackend struct {
	mu sync.RWMutex

	modules       []api.Module
	moduleContent map[string][]api.ContentRef
	contentByID   map[string]*api.ContentRef
	sessions      map[string]*api.SessionSummary
	messages      map[string][]api.WireMessage

	errs map[string]error

	calls map[string]int

	// blocks holds per-operation gates. An operation with a gate
	// registered waits on it after counting the call.
	blocks map[string]chan struct{}

	nextSession int
	nextMessage int
}

// NewMockBackend creates an empty mock backend.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		moduleContent: make(map[string][]api.ContentRef),
		contentByID:   make(map[string]*api.ContentRef),
		sessions:      make(map[string]*api.SessionSummary),
		messages:      make(map[string][]api.WireMessage),
		errs:          make(map[string]error),
		calls:         make(map[string]int),
		blocks:        make(map[string]chan struct{}),
	}
}

// AddModule registers a module.
func (m *MockBackend) AddModule(mod api.Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules = append(m.modules, mod)
}

// AddContent registers content, optionally attached to a module.
func (m *MockBackend) AddContent(ref api.ContentRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := ref
	m.contentByID[ref.ID] = &r
	if ref.ModuleID != "" {
		m.moduleContent[ref.ModuleID] = append(m.moduleContent[ref.ModuleID], ref)
	}
}

// AddSession registers an existing session with its history.
func (m *MockBackend) AddSession(s api.SessionSummary, history []api.WireMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s
	m.sessions[s.ID] = &cp
	m.messages[s.ID] = history
}

// SetError makes the named operation fail.
func (m *MockBackend) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
}

// Block installs a gate for the named operation; calls wait until
// Unblock.
func (m *MockBackend) Block(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[op] = make(chan struct{})
}

// Unblock releases a gate installed with Block.
func (m *MockBackend) Unblock(op string) {
	m.mu.Lock()
	gate, ok := m.blocks[op]
	delete(m.blocks, op)
	m.mu.Unlock()
	if ok {
		close(gate)
	}
}

// Calls reports how many times the named operation ran.
func (m *MockBackend) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// enter counts the call, returns the injected error and waits on the
// gate if one is installed.
func (m *MockBackend) enter(op string) error {
	m.mu.Lock()
	m.calls[op]++
	err := m.errs[op]
	gate := m.blocks[op]
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

func (m *MockBackend) ListModules(_ context.Context) ([]api.Module, error) {
	if err := m.enter("ListModules"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]api.Module, len(m.modules))
	copy(out, m.modules)
	return out, nil
}

func (m *MockBackend) ListModuleContent(_ context.Context, moduleID string) ([]api.ContentRef, error) {
	if err := m.enter("ListModuleContent"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.moduleContent[moduleID], nil
}

func (m *MockBackend) GetContent(_ context.Context, contentID string) (*api.ContentRef, error) {
	if err := m.enter("GetContent"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ref, ok := m.contentByID[contentID]; ok {
		cp := *ref
		return &cp, nil
	}
	return nil, api.ErrNotFound
}

func (m *MockBackend) ListSessions(_ context.Context) ([]api.SessionSummary, error) {
	if err := m.enter("ListSessions"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]api.SessionSummary, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (m *MockBackend) GetSession(_ context.Context, sessionID string) (*api.SessionSummary, error) {
	if err := m.enter("GetSession"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[sessionID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, api.ErrNotFound
}

func (m *MockBackend) CreateSession(_ context.Context, moduleRef string, contentIDs []string) (*api.SessionSummary, error) {
	if err := m.enter("CreateSession"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSession++
	s := &api.SessionSummary{
		ID:         fmt.Sprintf("sess-%d", m.nextSession),
		ModuleRef:  moduleRef,
		ContentIDs: contentIDs,
	}
	m.sessions[s.ID] = s
	return s, nil
}

func (m *MockBackend) DeleteSession(_ context.Context, sessionID string) error {
	if err := m.enter("DeleteSession"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	delete(m.messages, sessionID)
	return nil
}

func (m *MockBackend) ListMessages(_ context.Context, sessionID string) ([]api.WireMessage, error) {
	if err := m.enter("ListMessages"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.messages[sessionID], nil
}

func (m *MockBackend) SendMessage(_ context.Context, sessionID, text string) (*api.ExchangeResult, error) {
	if err := m.enter("SendMessage"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMessage++
	user := api.WireMessage{
		ID: fmt.Sprintf("u%d", m.nextMessage), Role: "user", Content: text,
	}
	assistant := api.WireMessage{
		ID: fmt.Sprintf("a%d", m.nextMessage), Role: "assistant", Content: "answer: " + text,
	}
	m.messages[sessionID] = append(m.messages[sessionID], user, assistant)
	return &api.ExchangeResult{UserMessage: user, AssistantMessage: assistant}, nil
}

func (m *MockBackend) GenerateTitle(_ context.Context, sessionID string) (string, error) {
	if err := m.enter("GenerateTitle"); err != nil {
		return "", err
	}
	return "Generated title", nil
}
