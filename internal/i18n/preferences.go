package i18n

import (
	"context"
	"fmt"
	"sync"
)

// PreferenceKey is the storage key of the language preference.
const PreferenceKey = "busmate-language"

// PreferenceStore persists small string values by key.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore is a PreferenceStore that lives for the process.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type Preferences struct {
	store    PreferenceStore
	fallback Language
}

// NewPreferences reads and writes the language preference through store.
// fallback is returned while nothing valid is stored; an unsupported
// fallback becomes English.
func NewPreferences(store PreferenceStore, fallback Language) *Preferences {
	if store == nil {
		store = NewMemoryStore()
	}
	if _, err := ParseLanguage(string(fallback)); err != nil {
		fallback = English
	}
	return &Preferences{store: store, fallback: fallback}
}

// Language returns the stored language. A missing or unrecognised value
// yields the fallback; a store failure yields the fallback and the error.
func (p *Preferences) Language(ctx context.Context) (Language, error) {
	v, ok, err := p.store.Get(ctx, PreferenceKey)
	if err != nil {
		return p.fallback, fmt.Errorf("read language preference: %w", err)
	}
	if !ok {
		return p.fallback, nil
	}
	lang, err := ParseLanguage(v)
	if err != nil {
		return p.fallback, nil
	}
	return lang, nil
}

func (p *Preferences) SetLanguage(ctx context.Context, lang Language) error {
	if _, err := ParseLanguage(string(lang)); err != nil {
		return err
	}
	if err := p.store.Set(ctx, PreferenceKey, string(lang)); err != nil {
		return fmt.Errorf("write language preference: %w", err)
	}
	return nil
}
