package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// RecordKey namespaces the values inside the settings file.
	RecordKey = "repost-settings"

	pathEnvVar  = "REPOST_SETTINGS_PATH"
	settingsDir = "repost"
	fileName    = "settings.json"
)

// Field names accepted by Set.
const (
	FieldOpenRouterKey    = "openRouterKey"
	FieldTelegramBotToken = "telegramBotToken"
	FieldChannelID        = "channelId"
)

var fieldAliases = map[string]string{
	"openrouterkey":    FieldOpenRouterKey,
	"openrouter-key":   FieldOpenRouterKey,
	"api-key":          FieldOpenRouterKey,
	"telegrambottoken": FieldTelegramBotToken,
	"bot-token":        FieldTelegramBotToken,
	"telegram-token":   FieldTelegramBotToken,
	"channelid":        FieldChannelID,
	"channel-id":       FieldChannelID,
	"channel":          FieldChannelID,
}

// ErrUnknownField is returned by Set for unsupported keys.
var ErrUnknownField = errors.New("unknown settings field")

// Values are the user-supplied credentials and destination.
type Values struct {
	OpenRouterKey    string `json:"openRouterKey"`
	TelegramBotToken string `json:"telegramBotToken"`
	ChannelID        string `json:"channelId"`
}

// Masked hides the secrets for display. The channel is left readable.
func (v Values) Masked() Values {
	return Values{
		OpenRouterKey:    Mask(v.OpenRouterKey),
		TelegramBotToken: Mask(v.TelegramBotToken),
		ChannelID:        v.ChannelID,
	}
}

// Mask shortens a secret to its first and last four characters.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	runes := []rune(secret)
	if len(runes) <= 8 {
		return "****"
	}
	return string(runes[:4]) + "..." + string(runes[len(runes)-4:])
}

// Store persists Values to a JSON file and rewrites it on every change.
type Store struct {
	path string

	mu     sync.Mutex
	values Values
}

// DefaultPath resolves the settings file location.
func DefaultPath() string {
	if env := strings.TrimSpace(os.Getenv(pathEnvVar)); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.TempDir(), "repost-config")
	}
	return filepath.Join(base, settingsDir, fileName)
}

// Open loads the store at path. A missing file yields empty values.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path}
	values, err := loadValues(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load settings %s: %w", path, err)
	}
	s.values = values
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current values.
func (s *Store) Get() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

// Save replaces every value and writes the file.
func (s *Store) Save(values Values) error {
	return s.Update(func(v *Values) { *v = values })
}

// Update applies fn and writes the result. The in-memory copy only changes
// when the write succeeds.
func (s *Store) Update(fn func(*Values)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.values
	fn(&next)
	next = normalize(next)
	if err := writeValues(s.path, next); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	s.values = next
	return nil
}

// Set writes a single field by name.
func (s *Store) Set(field, value string) error {
	name, err := CanonicalField(field)
	if err != nil {
		return err
	}
	return s.Update(func(v *Values) {
		switch name {
		case FieldOpenRouterKey:
			v.OpenRouterKey = value
		case FieldTelegramBotToken:
			v.TelegramBotToken = value
		case FieldChannelID:
			v.ChannelID = value
		}
	})
}

// CanonicalField maps user input like "bot-token" to a field name.
func CanonicalField(field string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(field))
	switch key {
	case strings.ToLower(FieldOpenRouterKey):
		return FieldOpenRouterKey, nil
	case strings.ToLower(FieldTelegramBotToken):
		return FieldTelegramBotToken, nil
	case strings.ToLower(FieldChannelID):
		return FieldChannelID, nil
	}
	if name, ok := fieldAliases[key]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func normalize(v Values) Values {
	v.OpenRouterKey = strings.TrimSpace(v.OpenRouterKey)
	v.TelegramBotToken = strings.TrimSpace(v.TelegramBotToken)
	v.ChannelID = strings.TrimSpace(v.ChannelID)
	return v
}

func loadRecords(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	records := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func loadValues(path string) (Values, error) {
	records, err := loadRecords(path)
	if err != nil {
		return Values{}, err
	}
	raw, ok := records[RecordKey]
	if !ok {
		return Values{}, nil
	}
	var values Values
	if err := json.Unmarshal(raw, &values); err != nil {
		return Values{}, err
	}
	return normalize(values), nil
}

// writeValues keeps any other records already present in the file.
func writeValues(path string, values Values) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	records, err := loadRecords(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		records = map[string]json.RawMessage{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	records[RecordKey] = raw
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
