package toast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func carry(t *testing.T, from *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range from.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestCookieCarriesToastsAcrossRedirect(t *testing.T) {
	c := NewCookie("test-secret", false)

	saved := httptest.NewRecorder()
	require.NoError(t, c.Save(saved, []Toast{
		{Title: "Subscription added!", Description: "Your subscription plan has been saved."},
	}))

	got, err := c.Take(httptest.NewRecorder(), carry(t, saved))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Subscription added!", got[0].Title)
	assert.False(t, got[0].Destructive)
}

func TestCookieRejectsForeignSignature(t *testing.T) {
	saved := httptest.NewRecorder()
	require.NoError(t, NewCookie("one-secret", false).Save(saved, []Toast{{Title: "forged"}}))

	_, err := NewCookie("other-secret", false).Take(httptest.NewRecorder(), carry(t, saved))
	assert.ErrorIs(t, err, ErrNoToasts)
}

func TestCookieExpires(t *testing.T) {
	c := NewCookie("test-secret", false)
	saved := httptest.NewRecorder()
	require.NoError(t, c.Save(saved, []Toast{{Title: "late"}}))

	c.now = func() time.Time { return time.Now().Add(2 * cookieTTL) }
	_, err := c.Take(httptest.NewRecorder(), carry(t, saved))
	assert.ErrorIs(t, err, ErrNoToasts)
}

func TestTakeClearsCookie(t *testing.T) {
	c := NewCookie("test-secret", false)
	saved := httptest.NewRecorder()
	require.NoError(t, c.Save(saved, []Toast{{Title: "once"}}))

	w := httptest.NewRecorder()
	_, err := c.Take(w, carry(t, saved))
	require.NoError(t, err)

	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, CookieName, cleared[0].Name)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestSaveKeepsNewestToasts(t *testing.T) {
	c := NewCookie("test-secret", false)
	var many []Toast
	for i := 0; i < maxCookieToasts+3; i++ {
		many = append(many, Toast{Title: string(rune('a' + i))})
	}

	saved := httptest.NewRecorder()
	require.NoError(t, c.Save(saved, many))
	got, err := c.Take(httptest.NewRecorder(), carry(t, saved))
	require.NoError(t, err)
	require.Len(t, got, maxCookieToasts)
	assert.Equal(t, many[len(many)-1].Title, got[len(got)-1].Title)
}

func TestBufferCollects(t *testing.T) {
	var b Buffer
	b.Notify(context.Background(), Toast{Title: "one"})
	b.Notify(context.Background(), Toast{Title: "two", Destructive: true})

	got := b.Toasts()
	require.Len(t, got, 2)
	assert.True(t, got[1].Destructive)
}
