package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

const apiHomeStream = "/api/home/stream"

// WatchHome follows the home stream and calls fn for every event until ctx
// is done, the server closes the stream or a redirect event arrives.
func (c *APIClient) WatchHome(ctx context.Context, fn func(HomeEvent)) error {
	wsURL := c.BaseURL + apiHomeStream
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	dialer := *websocket.DefaultDialer
	if c.HTTPClient != nil {
		if t, ok := c.HTTPClient.Transport.(*http.Transport); ok && t.TLSClientConfig != nil {
			dialer.TLSClientConfig = t.TLSClientConfig.Clone()
		}
	}

	header := http.Header{}
	if c.Token != "" {
		header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.Guest {
		header.Set("Cookie", "isGuest=true")
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeFailure(resp)
		}
		return fmt.Errorf("dial home stream: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var ev HomeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			var closeErr *websocket.CloseError
			if ctx.Err() != nil || errors.As(err, &closeErr) {
				return nil
			}
			return fmt.Errorf("read home stream: %w", err)
		}
		fn(ev)
		if ev.Redirect != "" {
			return nil
		}
	}
}
