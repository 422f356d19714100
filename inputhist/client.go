package inputhist

// ClientEntry is one slot in the client's input history. There is no
// per-client keying on the client side — there is only one stream, the
// local player's.
type ClientEntry struct {
	Input []byte
	// Ping is true until the server first acks the tick this entry was
	// simulated at.
	Ping bool
}

// Client is the client-side input history (spec §4.6).
type Client struct {
	entries []ClientEntry
}

// NewClient returns an empty client history.
func NewClient() *Client {
	return &Client{}
}

func (c *Client) Len() int { return len(c.entries) }

func (c *Client) Entry(i int) ClientEntry { return c.entries[i] }

// Append records a freshly-simulated input, unacked.
func (c *Client) Append(input []byte) {
	c.entries = append(c.entries, ClientEntry{Input: input, Ping: true})
}

// Ack clears the Ping flag on the oldest n unacked entries, marking them as
// seen by the server.
func (c *Client) Ack(n int) {
	acked := 0
	for i := range c.entries {
		if !c.entries[i].Ping {
			continue
		}
		c.entries[i].Ping = false
		acked++
		if acked >= n {
			break
		}
	}
}

// Drop discards the oldest n entries, keeping at least one to preserve the
// server-side invariant's client-side mirror: the history must never go
// fully empty mid-reconciliation.
func (c *Client) Drop(n int) {
	if n <= 0 {
		return
	}
	if n >= len(c.entries) {
		n = len(c.entries) - 1
	}
	if n < 0 {
		n = 0
	}
	c.entries = c.entries[n:]
}

// GenerateBogusInputs appends n+1 default entries, used during bootstrap
// fast-forward so the client has something to diff against while it
// replays the server's snapshot-to-present gap.
func (c *Client) GenerateBogusInputs(n int) {
	for i := 0; i <= n; i++ {
		c.entries = append(c.entries, ClientEntry{})
	}
}
