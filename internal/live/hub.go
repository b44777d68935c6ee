package live

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub tracks websocket clients per user and pushes refresh events when
// the check engine finishes a batch touching their monitors.
var (
	userClients   = make(map[uint]map[*websocket.Conn]bool)
	userClientsMu sync.RWMutex
)

const writeWait = 10 * time.Second

// Register adds a connection to a user's client set.
func Register(userID uint, conn *websocket.Conn) {
	userClientsMu.Lock()
	defer userClientsMu.Unlock()

	if userClients[userID] == nil {
		userClients[userID] = make(map[*websocket.Conn]bool)
	}
	userClients[userID][conn] = true
}

// Unregister removes a connection, dropping the user's entry when it
// was the last one.
func Unregister(userID uint, conn *websocket.Conn) {
	userClientsMu.Lock()
	defer userClientsMu.Unlock()

	if clients, exists := userClients[userID]; exists {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(userClients, userID)
		}
	}
}

// BroadcastRefresh tells a user's connected clients to refetch monitor
// state. Failed connections are dropped.
func BroadcastRefresh(userID uint) {
	userClientsMu.RLock()
	clients, exists := userClients[userID]
	if !exists || len(clients) == 0 {
		userClientsMu.RUnlock()
		return
	}

	// Copy so the lock is not held during writes.
	clientsCopy := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		clientsCopy = append(clientsCopy, conn)
	}
	userClientsMu.RUnlock()

	for _, conn := range clientsCopy {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for broadcast: %v", err)
			continue
		}

		err := conn.WriteJSON(map[string]string{
			"type":    "refresh",
			"message": "Monitor data updated",
		})

		if err != nil {
			log.Printf("Failed to broadcast refresh to client: %v", err)
			Unregister(userID, conn)
			conn.Close()
		}
	}
}
