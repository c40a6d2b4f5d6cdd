package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Rooms tracks every connected session and which lobby room each one sits
// in. Sends to other sessions go through here so they cannot race the
// close of a departing session's outbox.
type Rooms struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	rooms        map[string]map[string]*Session
	platformSync map[string][]byte // last platformSync message per lobby
	logger       *zap.Logger
}

func NewRooms(logger *zap.Logger) *Rooms {
	return &Rooms{
		sessions:     make(map[string]*Session),
		rooms:        make(map[string]map[string]*Session),
		platformSync: make(map[string][]byte),
		logger:       logger,
	}
}

func (r *Rooms) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Unregister drops the session from its room and the global set, closing
// its outbox. Call exactly once, after the reader loop has returned.
func (r *Rooms) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(s)
	if _, ok := r.sessions[s.ID]; ok {
		delete(r.sessions, s.ID)
		close(s.outbox)
	}
}

// JoinRoom moves the session into a lobby's room, leaving any previous one.
func (r *Rooms) JoinRoom(lobbyID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(s)
	members, ok := r.rooms[lobbyID]
	if !ok {
		members = make(map[string]*Session)
		r.rooms[lobbyID] = members
	}
	members[s.ID] = s
	s.lobbyID = lobbyID
}

// LeaveRoom detaches the session from whatever room it is in.
func (r *Rooms) LeaveRoom(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(s)
}

func (r *Rooms) leaveLocked(s *Session) {
	if s.lobbyID == "" {
		return
	}
	if members, ok := r.rooms[s.lobbyID]; ok {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(r.rooms, s.lobbyID)
			delete(r.platformSync, s.lobbyID)
		}
	}
	s.lobbyID = ""
}

// DropRoom clears a lobby's room and cached sync state, e.g. after the
// lobby itself was deleted. Member sessions stay connected.
func (r *Rooms) DropRoom(lobbyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.rooms[lobbyID]; ok {
		for _, s := range members {
			s.lobbyID = ""
		}
		delete(r.rooms, lobbyID)
	}
	delete(r.platformSync, lobbyID)
}

// SessionLobby reports which lobby room the session currently occupies.
func (r *Rooms) SessionLobby(s *Session) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return s.lobbyID
}

// Broadcast sends to every member of a lobby's room, optionally skipping
// one session id. Marshals once, fans out raw bytes.
func (r *Rooms) Broadcast(lobbyID, exceptID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("marshal broadcast", zap.Error(err))
		return
	}
	r.BroadcastRaw(lobbyID, exceptID, data)
}

// BroadcastRaw fans out pre-marshaled bytes to a room.
func (r *Rooms) BroadcastRaw(lobbyID, exceptID string, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, s := range r.rooms[lobbyID] {
		if id == exceptID {
			continue
		}
		s.sendRaw(data)
	}
}

// BroadcastAll sends to every connected session, in or out of a lobby.
func (r *Rooms) BroadcastAll(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("marshal broadcast", zap.Error(err))
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		s.sendRaw(data)
	}
}

// CachePlatformSync remembers the latest platform state for a lobby so a
// late joiner can request it.
func (r *Rooms) CachePlatformSync(lobbyID string, v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("marshal platform sync", zap.Error(err))
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platformSync[lobbyID] = data
	return data
}

// CachedPlatformSync returns the last platformSync payload seen for a
// lobby, if any.
func (r *Rooms) CachedPlatformSync(lobbyID string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.platformSync[lobbyID]
	return data, ok
}
