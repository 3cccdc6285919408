package handlers

import (
	"fmt"
	"library/services"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSLoansHandler - WebSocket endpoint читателя: события его заявок.
// Первым кадром сообщает socket id - клиент передает его в X-Socket-ID
// мутирующих запросов.
func WSLoansHandler(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	wc := services.GlobalWSConnManager.Add(userID.(int64), conn)
	defer services.GlobalWSConnManager.Remove(userID.(int64), wc)

	hello := fmt.Sprintf(`{"event":"connected","socket_id":"%s"}`, wc.SocketID)
	_ = conn.WriteMessage(websocket.TextMessage, []byte(hello))

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			log.Println("WebSocket read error:", err)
			break
		}
	}
}

// WSAdminLoansHandler - WebSocket endpoint админской панели: все заявки
func WSAdminLoansHandler(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	wc := services.GlobalWSConnManager.AddAdmin(userID.(int64), conn)
	defer services.GlobalWSConnManager.RemoveAdmin(userID.(int64), wc)

	hello := fmt.Sprintf(`{"event":"connected","socket_id":"%s"}`, wc.SocketID)
	_ = conn.WriteMessage(websocket.TextMessage, []byte(hello))

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			log.Println("WebSocket read error:", err)
			break
		}
	}
}
