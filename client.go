package codexrun

// Client creates threads that share an Engine and connection settings.
type Client struct {
	engine Engine
	opts   ClientOptions
}

// NewClient returns a client that runs turns on engine.
func NewClient(engine Engine, opts ...ClientOption) *Client {
	return &Client{engine: engine, opts: resolveClientOptions(opts...)}
}

// StartThread returns a thread with no session id. The id is learned from
// the first thread.started event.
func (c *Client) StartThread(opts ThreadOptions) *Thread {
	return newThread(c.engine, c.opts, opts, "")
}

// ResumeThread returns a thread bound to an existing session id. Every turn
// passes "resume <id>" to codex.
func (c *Client) ResumeThread(id string, opts ThreadOptions) *Thread {
	return newThread(c.engine, c.opts, opts, id)
}
