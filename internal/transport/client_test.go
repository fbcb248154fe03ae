package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chat-client-app/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, srv
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("ftp://example.com"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestConnectReceivesEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("username"); got != "me" {
			t.Errorf("expected username query, got %q", got)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ev := Event{Type: EventMessage, Sender: "bob", Timestamp: time.Now()}
		ev.Data, _ = json.Marshal(models.ChatMessage{ID: 5, Text: "hi"})
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
		// Keep the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c, _ := newTestClient(t, mux)
	got := make(chan Event, 1)
	c.Subscribe(EventMessage, func(ev Event) { got <- ev })

	if err := c.Connect(context.Background(), "me"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case ev := <-got:
		if ev.Sender != "bob" {
			t.Fatalf("unexpected sender %q", ev.Sender)
		}
		var msg models.ChatMessage
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			t.Fatalf("decode event data: %v", err)
		}
		if msg.ID != 5 || msg.Text != "hi" {
			t.Fatalf("unexpected message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestMessagesRequestAndDecode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/messages/me/bob", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("pageSize") != "20" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"list": []models.ChatMessage{
				{ID: 11, Text: "older1"},
				{ID: 12, Text: "older2"},
			},
		})
	})

	c, _ := newTestClient(t, mux)
	msgs, err := c.Messages(context.Background(), "me", "bob", 2, 20)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != 11 || msgs[1].ID != 12 {
		t.Fatalf("unexpected page: %+v", msgs)
	}
}

func TestSendMultipartUpload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/send/bob", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Query().Get("sender") != "me" {
			t.Errorf("missing sender query: %s", r.URL.RawQuery)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.FormValue("message"); got != "here you go" {
			t.Errorf("unexpected message field %q", got)
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 1 || files[0].Filename != "pic.png" {
			t.Errorf("unexpected files: %+v", files)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": models.ChatMessage{
				ID:    7,
				Files: []models.FileMessage{{ID: 9, FileName: "pic.png", FileURL: "ChatFiles/pic.png"}},
			},
		})
	})

	c, _ := newTestClient(t, mux)
	msg, err := c.Send(context.Background(), "me", "bob", "here you go", []models.StagedFile{
		{LocalID: "x", FileName: "pic.png", FileType: "image/png", Data: []byte("fake png")},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.ID != 7 || len(msg.Files) != 1 || msg.Files[0].ID != 9 {
		t.Fatalf("unexpected response message: %+v", msg)
	}
}

func TestUpdateDecodesBareMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/update-message", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		var msg models.ChatMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode body: %v", err)
		}
		msg.Text = msg.Text + " (saved)"
		json.NewEncoder(w).Encode(msg)
	})

	c, _ := newTestClient(t, mux)
	got, err := c.Update(context.Background(), models.ChatMessage{ID: 3, Text: "edited"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.ID != 3 || got.Text != "edited (saved)" {
		t.Fatalf("unexpected response: %+v", got)
	}
}

func TestDeleteFilePath(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		gotPath = r.URL.Path
	})

	c, _ := newTestClient(t, mux)
	if err := c.DeleteFile(context.Background(), "me", "bob", 9); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if gotPath != "/api/chat/delete-file/me/bob/9" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/download/png/pic.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary content"))
	})

	c, _ := newTestClient(t, mux)
	data, err := c.Download(context.Background(), "png", "pic.png")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if string(data) != "binary content" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestContactsEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"list": []models.Contact{{UserName: "alice"}, {UserName: "bob"}},
			},
		})
	})

	c, _ := newTestClient(t, mux)
	contacts, err := c.Contacts(context.Background())
	if err != nil {
		t.Fatalf("Contacts failed: %v", err)
	}
	if len(contacts) != 2 || contacts[0].UserName != "alice" {
		t.Fatalf("unexpected contacts: %+v", contacts)
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	c, _ := newTestClient(t, mux)
	if _, err := c.Messages(context.Background(), "me", "bob", 1, 20); err == nil {
		t.Fatalf("expected error for 500 response")
	} else if !strings.Contains(err.Error(), "500") {
		t.Fatalf("status not surfaced: %v", err)
	}
}
