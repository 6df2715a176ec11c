package identity

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{"personal", Personal, false},
		{"WORK", Work, false},
		{" Research ", Research, false},
		{"holiday", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseName(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidProfile(err))
				assert.Contains(t, err.Error(), "personal, work, research")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNames_ReturnsCopy(t *testing.T) {
	n := Names()
	n[0] = "mutated"
	assert.Equal(t, Personal, Names()[0])
}

func TestResolver_GetSetReset(t *testing.T) {
	r, err := NewResolver("personal")
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, Personal, r.Get(ctx).Profile)

	workCtx, id, err := r.Set(ctx, "Work", "session-1")
	require.NoError(t, err)
	assert.Equal(t, Identity{Profile: Work, SessionID: "session-1"}, id)
	assert.Equal(t, Work, r.Get(workCtx).Profile)
	assert.Equal(t, Personal, r.Get(ctx).Profile, "parent context is untouched")

	resetCtx := r.Reset(workCtx)
	assert.Equal(t, Personal, r.Get(resetCtx).Profile)
	_, ok := FromContext(resetCtx)
	assert.False(t, ok)
}

func TestResolver_SetInvalidKeepsContext(t *testing.T) {
	r, err := NewResolver("research")
	require.NoError(t, err)

	workCtx, _, err := r.Set(context.Background(), "work", "")
	require.NoError(t, err)

	same, _, err := r.Set(workCtx, "holiday", "")
	require.Error(t, err)
	assert.True(t, IsInvalidProfile(err))
	assert.Equal(t, Work, r.Get(same).Profile)
}

func TestNewResolver_InvalidDefault(t *testing.T) {
	_, err := NewResolver("holiday")
	require.Error(t, err)
	assert.True(t, IsInvalidProfile(err))
}

func TestResolver_ConcurrentUnitsAreIsolated(t *testing.T) {
	r, err := NewResolver("personal")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		name := Names()[i%3]
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, _, err := r.Set(context.Background(), string(name), "")
			assert.NoError(t, err)
			assert.Equal(t, name, r.Get(ctx).Profile)
		}()
	}
	wg.Wait()
}

func TestSessions(t *testing.T) {
	r, err := NewResolver("personal")
	require.NoError(t, err)
	s := NewSessions(r)

	assert.Equal(t, Personal, s.Get("a").Profile)

	prev, cur, err := s.Switch("a", "work")
	require.NoError(t, err)
	assert.Equal(t, Personal, prev.Profile)
	assert.Equal(t, Work, cur.Profile)
	assert.Equal(t, Work, s.Get("a").Profile)
	assert.Equal(t, Personal, s.Get("b").Profile, "sessions do not share a selection")

	_, _, err = s.Switch("a", "holiday")
	require.Error(t, err)
	assert.Equal(t, Work, s.Get("a").Profile)

	assert.Equal(t, 1, s.Len())
	s.Forget("a")
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, Personal, s.Get("a").Profile)
}
