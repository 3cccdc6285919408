package client

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSChannel - реализация RealtimeChannel поверх websocket-endpoint'а
// сервера. Первым кадром сервер присылает socket id соединения -
// он пробрасывается в onSocketID (обычно это HTTPGateway.SetSocketID).
type WSChannel struct {
	URL        string
	Token      string
	onSocketID func(string)
}

func NewWSChannel(url, token string, onSocketID func(string)) *WSChannel {
	return &WSChannel{URL: url, Token: token, onSocketID: onSocketID}
}

type wsSubscription struct {
	conn *websocket.Conn
	once sync.Once
	done chan struct{}
}

func (s *wsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
		<-s.done
	})
	return err
}

func (ch *WSChannel) Listen(handler func(Event)) (Subscription, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+ch.Token)

	conn, _, err := websocket.DefaultDialer.Dial(ch.URL, header)
	if err != nil {
		return nil, err
	}

	sub := &wsSubscription{conn: conn, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var frame struct {
				Event    string          `json:"event"`
				SocketID string          `json:"socket_id"`
				Loan     json.RawMessage `json:"loan_request"`
			}
			if err := json.Unmarshal(data, &frame); err != nil {
				log.Println("Failed to parse ws frame:", err)
				continue
			}

			if frame.Event == "connected" {
				if ch.onSocketID != nil {
					ch.onSocketID(frame.SocketID)
				}
				continue
			}

			var ev Event
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Println("Failed to parse loan event:", err)
				continue
			}
			handler(ev)
		}
	}()

	return sub, nil
}
