package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/personarena/backend/internal/model/chat"
	"github.com/personarena/backend/internal/model/debate"
	"github.com/personarena/backend/internal/model/persona"
)

// DefaultRecordName matches the storage key the web client persists
// its state under, so both read the same record shape.
const DefaultRecordName = "persona-storage"

// SQLiteStore keeps the whole State in memory and writes it back to a
// single sqlite row on every mutation. Mutations are applied to a copy
// first; the in-memory state only advances once the row is written, so
// a failed save leaves nothing half-applied.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	record string
	state  State
}

// OpenSQLite opens (creating if needed) the store database at dbPath
// and loads the named record. An empty record name uses
// DefaultRecordName.
func OpenSQLite(dbPath, record string) (*SQLiteStore, error) {
	if record == "" {
		record = DefaultRecordName
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to store database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS records (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create store schema: %w", err)
	}

	s := &SQLiteStore{db: db, record: record, state: newState()}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) load() error {
	var data string
	err := s.db.QueryRow(`SELECT data FROM records WHERE name = ?`, s.record).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load record %q: %w", s.record, err)
	}

	st := newState()
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return fmt.Errorf("failed to decode record %q: %w", s.record, err)
	}
	if st.ChatHistory == nil {
		st.ChatHistory = make(map[string][]chat.Message)
	}
	s.state = st
	return nil
}

func (s *SQLiteStore) save(st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", s.record, err)
	}

	query := `
	INSERT INTO records (name, data, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if _, err := s.db.Exec(query, s.record, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save record %q: %w", s.record, err)
	}
	return nil
}

// mutate applies fn to a copy of the state and commits it only after
// the copy has been persisted.
func (s *SQLiteStore) mutate(fn func(st *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.save(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Personas returns the stored personas in creation order.
func (s *SQLiteStore) Personas() []persona.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]persona.Profile(nil), s.state.Personas...)
}

// FindPersona looks up a persona by identifier.
func (s *SQLiteStore) FindPersona(id string) (persona.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.state.Personas {
		if p.ID == id {
			return p, true
		}
	}
	return persona.Profile{}, false
}

// AddPersona stores a new persona with a freshly assigned id and an
// empty chat transcript. Fails with ErrCapacityExceeded once
// persona.MaxPersonas profiles exist.
func (s *SQLiteStore) AddPersona(profile persona.Profile) (persona.Profile, error) {
	var added persona.Profile
	err := s.mutate(func(st *State) error {
		if len(st.Personas) >= persona.MaxPersonas {
			return ErrCapacityExceeded
		}
		profile.ID = uuid.NewString()
		st.Personas = append(st.Personas, profile)
		st.ChatHistory[profile.ID] = []chat.Message{}
		added = profile
		return nil
	})
	if err != nil {
		return persona.Profile{}, err
	}
	return added, nil
}

// DeletePersona removes a persona and its chat transcript. Deleting an
// unknown id is a no-op.
func (s *SQLiteStore) DeletePersona(id string) error {
	return s.mutate(func(st *State) error {
		kept := st.Personas[:0]
		for _, p := range st.Personas {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		st.Personas = kept
		delete(st.ChatHistory, id)
		if st.ActivePersonaID == id {
			st.ActivePersonaID = ""
		}
		return nil
	})
}

// AppendChatMessage appends to a persona's transcript, creating the
// transcript implicitly if none exists yet.
func (s *SQLiteStore) AppendChatMessage(personaID string, message chat.Message) error {
	return s.mutate(func(st *State) error {
		st.ChatHistory[personaID] = append(st.ChatHistory[personaID], message)
		return nil
	})
}

// ChatHistory returns the transcript for a persona, oldest first.
func (s *SQLiteStore) ChatHistory(personaID string) []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]chat.Message(nil), s.state.ChatHistory[personaID]...)
}

// ClearChatHistory resets a persona's transcript to empty.
func (s *SQLiteStore) ClearChatHistory(personaID string) error {
	return s.mutate(func(st *State) error {
		st.ChatHistory[personaID] = []chat.Message{}
		return nil
	})
}

// CreateDebateSession records a new active session for the given
// participants and topic.
func (s *SQLiteStore) CreateDebateSession(personaIDs []string, topic string) (debate.Session, error) {
	var created debate.Session
	err := s.mutate(func(st *State) error {
		if err := debate.ValidateSetup(personaIDs, topic); err != nil {
			return err
		}
		session := debate.Session{
			ID:         uuid.NewString(),
			PersonaIDs: append([]string(nil), personaIDs...),
			Topic:      topic,
			Messages:   []debate.Message{},
			CreatedAt:  time.Now().UTC(),
			IsActive:   true,
		}
		st.DebateSessions = append(st.DebateSessions, session)
		active := cloneSession(session)
		st.ActiveDebateSession = &active
		created = session
		return nil
	})
	if err != nil {
		return debate.Session{}, err
	}
	return created, nil
}

// DebateSession returns a session from history by id.
func (s *SQLiteStore) DebateSession(sessionID string) (debate.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.state.DebateSessions {
		if session.ID == sessionID {
			return cloneSession(session), true
		}
	}
	return debate.Session{}, false
}

// DebateSessions returns the full session history, oldest first.
func (s *SQLiteStore) DebateSessions() []debate.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]debate.Session, 0, len(s.state.DebateSessions))
	for _, session := range s.state.DebateSessions {
		sessions = append(sessions, cloneSession(session))
	}
	return sessions
}

// ActiveDebateSession returns the session currently occupying the
// active slot, if any.
func (s *SQLiteStore) ActiveDebateSession() (debate.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.ActiveDebateSession == nil {
		return debate.Session{}, false
	}
	return cloneSession(*s.state.ActiveDebateSession), true
}

// AppendDebateMessage appends to the named session's transcript. When
// that session occupies the active slot, the active view is updated in
// the same write, so the two can never diverge.
func (s *SQLiteStore) AppendDebateMessage(sessionID string, message debate.Message) error {
	return s.mutate(func(st *State) error {
		idx := -1
		for i := range st.DebateSessions {
			if st.DebateSessions[i].ID == sessionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrSessionNotFound
		}
		if !st.DebateSessions[idx].HasParticipant(message.PersonaID) {
			return ErrNotParticipant
		}
		st.DebateSessions[idx].Messages = append(st.DebateSessions[idx].Messages, message)
		if st.ActiveDebateSession != nil && st.ActiveDebateSession.ID == sessionID {
			st.ActiveDebateSession.Messages = append(st.ActiveDebateSession.Messages, message)
		}
		return nil
	})
}

// EndDebateSession marks the session inactive and releases the active
// slot if this session held it. The session stays in history.
func (s *SQLiteStore) EndDebateSession(sessionID string) error {
	return s.mutate(func(st *State) error {
		for i := range st.DebateSessions {
			if st.DebateSessions[i].ID == sessionID {
				st.DebateSessions[i].IsActive = false
			}
		}
		if st.ActiveDebateSession != nil && st.ActiveDebateSession.ID == sessionID {
			st.ActiveDebateSession = nil
		}
		return nil
	})
}
