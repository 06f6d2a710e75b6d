// Package i18n holds the English and Kannada UI message tables and the
// persisted language preference.
package i18n

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"busmate/internal/transit"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

type Language string

const (
	English Language = "en"
	Kannada Language = "kn"
)

var Languages = []Language{English, Kannada}

func ParseLanguage(s string) (Language, error) {
	switch l := Language(strings.ToLower(strings.TrimSpace(s))); l {
	case English, Kannada:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

//go:embed messages.toml
var defaultMessages []byte

type Translator struct {
	tables map[Language]map[Key]string
}

// Default decodes the embedded message tables.
func Default() (*Translator, error) {
	return Parse(defaultMessages)
}

// Parse decodes a TOML document with one table per language. Tables for
// languages other than en and kn are rejected.
func Parse(data []byte) (*Translator, error) {
	var raw map[string]map[string]string
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	t := &Translator{tables: make(map[Language]map[Key]string, len(raw))}
	for name, entries := range raw {
		lang, err := ParseLanguage(name)
		if err != nil {
			return nil, fmt.Errorf("messages table [%s]: %w", name, err)
		}
		table := make(map[Key]string, len(entries))
		for k, v := range entries {
			table[Key(k)] = v
		}
		t.tables[lang] = table
	}
	return t, nil
}

// T returns the message for key in lang, or the key itself when the
// language or the key is missing.
func (t *Translator) T(lang Language, key Key) string {
	if v, ok := t.tables[lang][key]; ok {
		return v
	}
	return string(key)
}

// Table returns a copy of every message in lang keyed by message name.
func (t *Translator) Table(lang Language) map[string]string {
	out := make(map[string]string, len(t.tables[lang]))
	for k, v := range t.tables[lang] {
		out[string(k)] = v
	}
	return out
}

func (t *Translator) CrowdLevel(lang Language, c transit.CrowdLevel) string {
	return t.T(lang, Key(c.String()))
}

func (t *Translator) Status(lang Language, s transit.Status) string {
	return t.T(lang, Key(s))
}

// Pick returns kn when lang is Kannada and it is non-empty, en otherwise.
// Reference data carries both names side by side.
func Pick(lang Language, en, kn string) string {
	if lang == Kannada && kn != "" {
		return kn
	}
	return en
}
