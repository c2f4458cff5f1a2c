package routeros

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-routeros/routeros/v3/proto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice speaks just enough of the RouterOS API wire format (length
// prefixed words, sentences ended by an empty word) to answer a login and
// one print command.
type fakeDevice struct {
	ln       net.Listener
	password string
	replies  [][]string
	commands chan []string
}

func startFakeDevice(t *testing.T, password string, replies [][]string) *fakeDevice {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeDevice{ln: ln, password: password, replies: replies, commands: make(chan []string, 4)}
	t.Cleanup(func() { _ = ln.Close() })

	go f.serve()
	return f
}

func (f *fakeDevice) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeDevice) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)

	login, err := readSentence(r)
	if err != nil {
		return
	}
	if !contains(login, "=password="+f.password) {
		writeSentence(conn, "!trap", "=message=invalid user name or password (6)")
		writeSentence(conn, "!done")
		return
	}
	writeSentence(conn, "!done")

	cmd, err := readSentence(r)
	if err != nil {
		return
	}
	f.commands <- cmd

	for _, re := range f.replies {
		writeSentence(conn, append([]string{"!re"}, re...)...)
	}
	writeSentence(conn, "!done")

	// Hold the connection until the client closes it.
	_, _ = io.Copy(io.Discard, r)
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func readSentence(r *bufio.Reader) ([]string, error) {
	var words []string
	for {
		n, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return words, nil
		}
		// Test words are shorter than 0x80 bytes, so the length is one byte.
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		words = append(words, string(buf))
	}
}

func writeSentence(w io.Writer, words ...string) {
	var b strings.Builder
	for _, word := range words {
		b.WriteByte(byte(len(word)))
		b.WriteString(word)
	}
	b.WriteByte(0)
	_, _ = io.WriteString(w, b.String())
}

func newTestClient() *Client {
	return NewClient(config.RouterOSConfig{
		Port:           8728,
		DialTimeout:    config.Duration(time.Second),
		CommandTimeout: config.Duration(2 * time.Second),
	}, zerolog.Nop())
}

func TestQuery_ReturnsRecords(t *testing.T) {
	dev := startFakeDevice(t, "secret", [][]string{
		{"=.id=*1", "=name=alice", "=address=10.0.0.2"},
		{"=.id=*2", "=name=bob", "=address=10.0.0.3"},
	})

	client := newTestClient()
	records, err := client.Query(context.Background(), dev.ln.Addr().String(),
		model.Credential{Username: "admin", Password: "secret"}, "/ppp/active/print")
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, model.RawRecord{".id": "*1", "name": "alice", "address": "10.0.0.2"}, records[0])
	assert.Equal(t, "bob", records[1]["name"])

	select {
	case cmd := <-dev.commands:
		require.NotEmpty(t, cmd)
		assert.Equal(t, "/ppp/active/print", cmd[0])
	case <-time.After(time.Second):
		t.Fatal("device never received the command")
	}
}

func TestQuery_LoginFailure(t *testing.T) {
	dev := startFakeDevice(t, "secret", nil)

	_, err := newTestClient().Query(context.Background(), dev.ln.Addr().String(),
		model.Credential{Username: "admin", Password: "wrong"}, "/ppp/active/print")
	assert.Error(t, err)
}

func TestQuery_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = newTestClient().Query(context.Background(), addr, model.Credential{}, "/ppp/active/print")
	assert.Error(t, err)
}

func TestQuery_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient().Query(ctx, "127.0.0.1:1", model.Credential{}, "/ppp/active/print")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestHostPort(t *testing.T) {
	c := newTestClient()
	assert.Equal(t, "10.0.0.1:8728", c.hostPort("10.0.0.1"))
	assert.Equal(t, "10.0.0.1:9000", c.hostPort("10.0.0.1:9000"))
	assert.Equal(t, "[2001:db8::1]:8728", c.hostPort("2001:db8::1"))
}

func TestRecords(t *testing.T) {
	sentences := []*proto.Sentence{
		{Word: "!re", List: []proto.Pair{{Key: ".id", Value: "*A"}, {Key: "user", Value: "carol"}}},
		nil,
		{Word: "!re"},
	}

	records := Records(sentences)
	require.Len(t, records, 2)
	assert.Equal(t, model.RawRecord{".id": "*A", "user": "carol"}, records[0])
	assert.Empty(t, records[1])
}
