package objectstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	k := Key(`C:\Users\staff\timetable.pdf`, now)
	assert.True(t, strings.HasPrefix(k, "2024/06/01/"), k)
	assert.True(t, strings.HasSuffix(k, "-timetable.pdf"), k)
	assert.NoError(t, ValidKey(k))

	assert.True(t, strings.HasSuffix(Key("", now), "-upload"))
	assert.NotEqual(t, Key("a.pdf", now), Key("a.pdf", now))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://storage.googleapis.com/b/x/a%20b.pdf", JoinURL("https://storage.googleapis.com/b/", "x/a b.pdf"))
}
