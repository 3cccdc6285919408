package services

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConn - одно websocket-соединение с присвоенным socket id.
// Socket id клиент передает в заголовке X-Socket-ID мутирующих запросов,
// чтобы сервер не слал ему эхо его же действия.
type WSConn struct {
	SocketID string
	Conn     *websocket.Conn
}

type WSConnManager struct {
	mu     sync.RWMutex
	users  map[int64][]*WSConn
	admins map[int64][]*WSConn
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users:  make(map[int64][]*WSConn),
		admins: make(map[int64][]*WSConn),
	}
}

func NewSocketID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) *WSConn {
	wc := &WSConn{SocketID: NewSocketID(), Conn: conn}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], wc)
	return wc
}

func (m *WSConnManager) AddAdmin(userID int64, conn *websocket.Conn) *WSConn {
	wc := &WSConn{SocketID: NewSocketID(), Conn: conn}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[userID] = append(m.admins[userID], wc)
	return wc
}

func (m *WSConnManager) Remove(userID int64, wc *WSConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeConn(m.users, userID, wc)
}

func (m *WSConnManager) RemoveAdmin(userID int64, wc *WSConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeConn(m.admins, userID, wc)
}

func removeConn(conns map[int64][]*WSConn, userID int64, wc *WSConn) {
	list := conns[userID]
	for i, c := range list {
		if c == wc {
			conns[userID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(conns[userID]) == 0 {
		delete(conns, userID)
	}
}

// Send отправляет сообщение всем соединениям пользователя,
// кроме соединения с socket id = exceptSocketID (может быть пустым).
func (m *WSConnManager) Send(userID int64, message []byte, exceptSocketID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, wc := range m.users[userID] {
		if exceptSocketID != "" && wc.SocketID == exceptSocketID {
			continue
		}
		_ = wc.Conn.WriteMessage(websocket.TextMessage, message)
	}
}

// SendAdmins отправляет сообщение всем админским соединениям.
func (m *WSConnManager) SendAdmins(message []byte, exceptSocketID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, list := range m.admins {
		for _, wc := range list {
			if exceptSocketID != "" && wc.SocketID == exceptSocketID {
				continue
			}
			_ = wc.Conn.WriteMessage(websocket.TextMessage, message)
		}
	}
}

var GlobalWSConnManager = NewWSConnManager()
