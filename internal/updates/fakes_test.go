package updates

import (
	"context"
	"errors"
	"sync"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// memoryUpdates behaves like the mongo store: malformed ids fail per record and
// the (entity, window, recipient) key rejects repeats
type memoryUpdates struct {
	mu      sync.Mutex
	records []models.Update
	keys    map[string]struct{}
	invalid map[string]bool
	calls   int
}

func newMemoryUpdates(invalid ...string) *memoryUpdates {
	m := &memoryUpdates{keys: make(map[string]struct{}), invalid: make(map[string]bool)}
	for _, id := range invalid {
		m.invalid[id] = true
	}
	return m
}

func (m *memoryUpdates) InsertMany(_ context.Context, updates []models.Update) (repositories.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	var result repositories.InsertResult
	for i, u := range updates {
		if m.invalid[u.RecipientUserID] {
			result.Failures = append(result.Failures, repositories.RecordFailure{Index: i, RecipientUserID: u.RecipientUserID, Err: repositories.ErrInvalidID})
			continue
		}
		if u.WindowLabel != "" {
			key := u.SourceEntityID + "|" + u.WindowLabel + "|" + u.RecipientUserID
			if _, ok := m.keys[key]; ok {
				result.Duplicates++
				continue
			}
			m.keys[key] = struct{}{}
		}
		m.records = append(m.records, u)
		result.Inserted++
	}
	return result, nil
}

func (m *memoryUpdates) ListByRecipient(_ context.Context, recipientID string, skip, limit int64) ([]models.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Update
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].RecipientUserID == recipientID {
			out = append(out, m.records[i])
		}
	}
	if skip >= int64(len(out)) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryUpdates) CountByRecipient(_ context.Context, recipientID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if r.RecipientUserID == recipientID {
			n++
		}
	}
	return n, nil
}

func (m *memoryUpdates) all() []models.Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Update(nil), m.records...)
}

func (m *memoryUpdates) recipients() []string {
	var ids []string
	for _, r := range m.all() {
		ids = append(ids, r.RecipientUserID)
	}
	return ids
}

// memoryPreferences maps user id to the stored flag. Users absent from the map
// do not exist.
type memoryPreferences struct {
	prefs map[string]*bool
	err   error
}

func (m memoryPreferences) GetUpdatePreferences(_ context.Context, ids []string) (map[string]*bool, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*bool, len(ids))
	for _, id := range ids {
		if pref, ok := m.prefs[id]; ok {
			out[id] = pref
		}
	}
	return out, nil
}

func optedIn(ids ...string) map[string]*bool {
	prefs := make(map[string]*bool, len(ids))
	for _, id := range ids {
		prefs[id] = nil
	}
	return prefs
}

func boolPtr(v bool) *bool { return &v }

var errStoreDown = errors.New("store down")

func newTestEngine(updates repositories.UpdateRepository, prefs map[string]*bool) (*Engine, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewEngine(updates, memoryPreferences{prefs: prefs}, zap.New(core), Options{}), logs
}
