package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gition/gition/internal/autosave"
	"github.com/gition/gition/internal/branch"
	"github.com/gition/gition/internal/content"
	"github.com/gition/gition/internal/db"
	"github.com/gition/gition/internal/events"
	"github.com/gition/gition/internal/nav"
	"github.com/gition/gition/internal/search"
	"github.com/gition/gition/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow same-origin requests only
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // No origin header (e.g., non-browser clients)
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// wsConn owns one workspace connection: a session for navigation state
// plus search and autosave coordinators. All outbound traffic funnels
// through sendCh so only one goroutine ever writes to the socket.
type wsConn struct {
	server *Server
	conn   *websocket.Conn
	sendCh chan wsEnvelope
	done   chan struct{}

	owner    string
	repoName string

	session   *workspace.Session
	search    *search.Coordinator
	navigator *content.Navigator

	mu          sync.Mutex
	saver       *autosave.Coordinator
	saverBranch string
}

func (s *Server) handleWorkspaceWS(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repoName := chi.URLParam(r, "repo")
	branchName := chi.URLParam(r, "branch")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	c := &wsConn{
		server:   s,
		conn:     conn,
		sendCh:   make(chan wsEnvelope, 64),
		done:     make(chan struct{}),
		owner:    owner,
		repoName: repoName,
	}

	resolver := branch.NewResolver(s.git)
	resolver.Fallback = s.cfg.Workspace.DefaultBranch
	contents := content.NewResolver(s.git)
	c.navigator = content.NewNavigator(s.git)

	c.session = workspace.NewSession(s.git, resolver, contents, func(st workspace.State) {
		c.onState(st)
	})
	c.session.SetGitHub(s.github)
	c.session.SetBus(s.eventBus)
	if s.db != nil {
		c.session.SetVisits(db.NewVisitStore(s.db, s.cfg.Backend.UserID))
	}

	c.search = search.NewCoordinator(s.git, repoName, func(u search.Update) {
		c.onSearch(u)
	})

	go c.writeLoop()
	defer c.close()

	c.session.Navigate(nav.Parse(owner, repoName, branchName, ""))

	c.readLoop()
}

func (c *wsConn) close() {
	close(c.done)
	c.session.Close()
	c.search.Close()
	c.conn.Close()
}

// send queues an envelope for the writer goroutine. Messages are dropped
// once the connection is shutting down.
func (c *wsConn) send(env wsEnvelope) {
	select {
	case c.sendCh <- env:
	case <-c.done:
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case env := <-c.sendCh:
			if err := c.conn.WriteJSON(env); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) onState(st workspace.State) {
	c.ensureSaver(st)
	c.send(wsEnvelope{Type: "state", Data: st})
}

func (c *wsConn) onSearch(u search.Update) {
	data := map[string]interface{}{
		"state":   u.State,
		"query":   u.Query,
		"results": u.Results,
	}
	if u.Err != nil {
		data["error"] = u.Err.Error()
	}
	c.send(wsEnvelope{Type: "search", Data: data})
}

func (c *wsConn) onAutosave(status autosave.Status, err error) {
	if status == autosave.StatusSaved && c.server.eventBus != nil {
		c.mu.Lock()
		branchName := c.saverBranch
		c.mu.Unlock()
		_ = c.server.eventBus.Publish(events.Event{
			Type:   events.EventPageSaved,
			Repo:   c.owner + "/" + c.repoName,
			Branch: branchName,
		})
	}

	data := map[string]interface{}{"status": status}
	if err != nil {
		data["error"] = err.Error()
	}
	c.send(wsEnvelope{Type: "autosave", Data: data})
}

// ensureSaver builds the autosave coordinator once the branch page has
// loaded. Switching branches replaces the coordinator; a save still in
// flight for the old branch finishes against the old page, which is the
// page it belongs to.
func (c *wsConn) ensureSaver(st workspace.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st.Page == nil || st.Page.BranchName == c.saverBranch {
		return
	}

	saver := autosave.NewCoordinator(c.server.git, c.repoName, st.Page.BranchName, c.onAutosave)
	saver.Prime(st.Page)
	if c.server.db != nil {
		repoRef := c.owner + "/" + c.repoName
		store := db.NewDraftStore(c.server.db, c.server.cfg.Backend.UserID, repoRef, st.Page.BranchName)
		saver.SetJournal(store)
		// The journal holds the last pair a save confirmed. When it
		// differs from the fetched page the page read is lagging behind
		// that save; guard against the journaled pair so the next flush
		// is not judged against stale values.
		if title, text, ok, err := store.Load(context.Background()); err == nil && ok {
			if title != st.Page.Title || text != st.Page.Content {
				saver.PrimeValues(title, text)
			}
		}
	}
	c.saver = saver
	c.saverBranch = st.Page.BranchName
}

func (c *wsConn) currentSaver() *autosave.Coordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saver
}

func (c *wsConn) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.send(wsEnvelope{Type: "error", Data: "invalid message"})
			continue
		}
		c.dispatch(msg)
	}
}

func (c *wsConn) dispatch(msg wsMessage) {
	switch msg.Type {
	case "navigate":
		var req struct {
			Branch string `json:"branch"`
			Path   string `json:"path"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.send(wsEnvelope{Type: "error", Data: "invalid navigate payload"})
			return
		}
		c.session.Navigate(nav.Parse(c.owner, c.repoName, req.Branch, req.Path))

	case "retry":
		c.session.Retry()

	case "search":
		var req struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.send(wsEnvelope{Type: "error", Data: "invalid search payload"})
			return
		}
		c.search.SetQuery(req.Query)

	case "search_clear":
		c.search.Clear()

	case "edit":
		var req struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.send(wsEnvelope{Type: "error", Data: "invalid edit payload"})
			return
		}
		saver := c.currentSaver()
		if saver == nil {
			c.send(wsEnvelope{Type: "error", Data: "page not loaded yet"})
			return
		}
		saver.ScheduleSave(req.Title, req.Content)

	case "save_now":
		saver := c.currentSaver()
		if saver == nil {
			c.send(wsEnvelope{Type: "error", Data: "page not loaded yet"})
			return
		}
		saver.SaveNow()

	case "github":
		go c.session.FetchGitHub()

	case "list_dir":
		var req struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.send(wsEnvelope{Type: "error", Data: "invalid list_dir payload"})
			return
		}
		go c.listDir(req.Path)

	case "up":
		var req struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.send(wsEnvelope{Type: "error", Data: "invalid up payload"})
			return
		}
		go c.up(req.Path)

	default:
		c.send(wsEnvelope{Type: "error", Data: "unknown message type: " + msg.Type})
	}
}

func (c *wsConn) listDir(path string) {
	entries, err := c.navigator.ListDirectory(context.Background(), c.repoName, path)
	if err != nil {
		c.send(wsEnvelope{Type: "error", Data: err.Error()})
		return
	}
	c.send(wsEnvelope{Type: "dir", Data: map[string]interface{}{
		"path":    nav.CleanPath(path),
		"entries": entries,
	}})
}

func (c *wsConn) up(path string) {
	entries, parent, ok, err := c.navigator.Up(context.Background(), c.repoName, path)
	if err != nil {
		c.send(wsEnvelope{Type: "error", Data: err.Error()})
		return
	}
	if !ok {
		// Already at the repository root. The client decides what leaving
		// the repository means; the server has no further tree to show.
		c.send(wsEnvelope{Type: "at_root"})
		return
	}
	c.send(wsEnvelope{Type: "dir", Data: map[string]interface{}{
		"path":    parent,
		"entries": entries,
	}})
}
