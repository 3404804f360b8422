package transport

// Handler receives the events of transport connections.
type Handler interface {
	// OnConnect is called when a connection is established, before its first message.
	OnConnect(conn *Conn)
	// OnMessage is called for every message received on conn.
	OnMessage(conn *Conn, msg Message)
	// OnDisconnect is called once when conn is lost or closed.
	OnDisconnect(conn *Conn)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Connect    func(conn *Conn)
	Message    func(conn *Conn, msg Message)
	Disconnect func(conn *Conn)
}

var _ Handler = HandlerFuncs{}

func (h HandlerFuncs) OnConnect(conn *Conn) {
	if h.Connect != nil {
		h.Connect(conn)
	}
}

func (h HandlerFuncs) OnMessage(conn *Conn, msg Message) {
	if h.Message != nil {
		h.Message(conn, msg)
	}
}

func (h HandlerFuncs) OnDisconnect(conn *Conn) {
	if h.Disconnect != nil {
		h.Disconnect(conn)
	}
}
