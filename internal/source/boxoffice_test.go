package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boxOfficeCSV = `Release Title,Gross,Theaters,Total Gross,Distributor
Nova,"$12,345,678","3,050","$98,765,432",A24
Busted Row,-,"2,000","$5,000,000",Neon
The Matrix,"$27,788,331","2,849","$171,479,930",Warner Bros.
`

func TestBoxOfficeClient_FetchTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(boxOfficeCSV))
	}))
	defer srv.Close()

	c := NewBoxOfficeClient(srv.URL)
	rows, err := c.FetchTable(context.Background())
	require.NoError(t, err)

	// "Busted Row" has a "-" gross and must be dropped.
	require.Len(t, rows, 2)
	assert.Equal(t, "Nova", rows[0].Title)
	assert.Equal(t, "$12,345,678", rows[0].OpeningGross)
	assert.Equal(t, "3,050", rows[0].Theaters)
	assert.Equal(t, "$98,765,432", rows[0].TotalGross)
	assert.Equal(t, "A24", rows[0].Distributor)
	assert.Equal(t, "The Matrix", rows[1].Title)
}

func TestBoxOfficeClient_HeaderCaseInsensitive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RELEASE TITLE,GROSS,THEATERS,TOTAL GROSS,DISTRIBUTOR\nNova,$1,10,$2,A24\n"))
	}))
	defer srv.Close()

	c := NewBoxOfficeClient(srv.URL)
	rows, err := c.FetchTable(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Nova", rows[0].Title)
}

func TestBoxOfficeClient_MissingColumn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Release Title,Gross\nNova,$1\n"))
	}))
	defer srv.Close()

	c := NewBoxOfficeClient(srv.URL)
	_, err := c.FetchTable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestBoxOfficeClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBoxOfficeClient(srv.URL)
	_, err := c.FetchTable(context.Background())
	assert.Error(t, err)
}

func TestBoxOfficeClient_UnsupportedScheme(t *testing.T) {
	c := NewBoxOfficeClient("gopher://example.com/table.csv")
	_, err := c.FetchTable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}
