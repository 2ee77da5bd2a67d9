// Package storage persists the whole application state to a single named
// slot, the way the browser build of this demo used one localStorage key.
// The slot lives in the workspace SQLite database; the envelope carries a
// schema version and there is deliberately no migration path: a version
// bump discards all prior demo sessions.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"greenledger/internal/domain"
)

// SchemaVersion is compiled in; stored envelopes with any other version
// are cleared on load.
const SchemaVersion = "1.0.0"

const slotKey = "greenledger_odisha"

// Envelope wraps the persisted state.
type Envelope struct {
	Version   string          `json:"version"`
	Timestamp int64           `json:"timestamp"`
	Data      domain.AppState `json:"data"`
}

// SlotInfo describes the stored envelope without decoding its data.
type SlotInfo struct {
	Version   string `json:"version"`
	Timestamp int64  `json:"timestamp"`
}

// Adapter reads and writes the state slot. It is stateless between calls;
// the only state lives in the storage medium.
type Adapter struct {
	DB      *sql.DB
	Version string
	Now     func() time.Time
	Logger  *log.Logger
}

func New(conn *sql.DB) (*Adapter, error) {
	a := &Adapter{DB: conn, Version: SchemaVersion}
	if err := a.ensureSchema(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Adapter) ensureSchema() error {
	_, err := a.DB.Exec(`CREATE TABLE IF NOT EXISTS app_state(
		slot TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`)
	return err
}

func (a *Adapter) logger() *log.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return log.Default()
}

func (a *Adapter) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Save writes the state, replacing any prior value. Persistence is best
// effort: failures are logged and swallowed so a full disk or closed
// database never interrupts a dispatch.
func (a *Adapter) Save(state domain.AppState) {
	env := Envelope{
		Version:   a.Version,
		Timestamp: a.now().UnixMilli(),
		Data:      state,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		a.logger().Printf("storage: marshal state: %v", err)
		return
	}
	_, err = a.DB.ExecContext(context.Background(),
		`INSERT INTO app_state(slot,payload) VALUES (?,?)
		 ON CONFLICT(slot) DO UPDATE SET payload=excluded.payload`,
		slotKey, string(payload))
	if err != nil {
		a.logger().Printf("storage: save state: %v", err)
	}
}

// Load returns the persisted state, or nil when there is no usable prior
// session: slot absent, payload unparseable, or schema version mismatch.
// A mismatched version clears the slot.
func (a *Adapter) Load() *domain.AppState {
	var payload string
	err := a.DB.QueryRow(`SELECT payload FROM app_state WHERE slot=?`, slotKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		a.logger().Printf("storage: load state: %v", err)
		return nil
	}
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		a.logger().Printf("storage: decode state: %v", err)
		return nil
	}
	if env.Version != a.Version {
		a.logger().Printf("storage: version mismatch (stored %s, want %s), resetting", env.Version, a.Version)
		a.Clear()
		return nil
	}
	return &env.Data
}

// Clear removes the stored envelope unconditionally.
func (a *Adapter) Clear() {
	if _, err := a.DB.Exec(`DELETE FROM app_state WHERE slot=?`, slotKey); err != nil {
		a.logger().Printf("storage: clear state: %v", err)
	}
}

// Info returns the stored envelope's version and timestamp, or nil when
// nothing usable is stored.
func (a *Adapter) Info() *SlotInfo {
	var payload string
	err := a.DB.QueryRow(`SELECT payload FROM app_state WHERE slot=?`, slotKey).Scan(&payload)
	if err != nil {
		return nil
	}
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil
	}
	return &SlotInfo{Version: env.Version, Timestamp: env.Timestamp}
}
