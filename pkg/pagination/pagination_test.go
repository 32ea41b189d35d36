package pagination

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(1, 0, 10)
	require.Error(t, err)

	_, err = New(0, 5, 10)
	require.Error(t, err)

	_, err = New(3, 5, 10)
	require.True(t, errors.Is(err, ErrPageOutOfRange))

	p, err := New(1, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.LastPage())
}

func TestBounds(t *testing.T) {
	p, err := New(3, 4, 10)
	require.NoError(t, err)

	from, to := p.Bounds()
	assert.Equal(t, 8, from)
	assert.Equal(t, 10, to)
	assert.Equal(t, 3, p.LastPage())
}

func TestLinks(t *testing.T) {
	base, err := url.Parse("http://localhost:8080/v1/data?metrics=clicks&page=2&perPage=10")
	require.NoError(t, err)

	p, err := New(2, 10, 35)
	require.NoError(t, err)

	links := p.Links(base)
	require.Len(t, links, 4)

	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.Name
	}
	assert.Equal(t, []string{"first", "previous", "next", "last"}, names)
	assert.Contains(t, links[3].URL, "page=4")
	assert.Contains(t, links[3].URL, "metrics=clicks")
	assert.Contains(t, links[3].URL, "perPage=10")
}

func TestLinks_SinglePage(t *testing.T) {
	base, _ := url.Parse("http://localhost/v1/data")
	p, err := New(1, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, p.Links(base))
}
