package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "refgraph-backend/pkg/errors"
)

const esummaryPayload = `{
	"result": {
		"uids": ["111", "222"],
		"111": {
			"uid": "111",
			"title": " Deep Learning for Citation Screening ",
			"pubdate": "2019 Jan 3",
			"articleids": [
				{"idtype": "pubmed", "value": "111"},
				{"idtype": "doi", "value": "10.1000/x"}
			],
			"authors": [{"name": "Chen L"}, {"name": "Okafor A"}]
		},
		"222": {
			"uid": "222",
			"title": "Untitled Supplement",
			"pubdate": "unknown"
		}
	}
}`

func TestFetchByIDs_ParsesEsummaryResponse(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(esummaryPayload))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, time.Second, zap.NewNop())
	records, err := client.FetchByIDs(context.Background(), []string{"111", "222"})
	require.NoError(t, err)

	assert.Equal(t, "pubmed", gotQuery.Get("db"))
	assert.Equal(t, "json", gotQuery.Get("retmode"))
	assert.Equal(t, "111,222", gotQuery.Get("id"))

	require.Len(t, records, 2)
	first := records[0]
	assert.Equal(t, "111", first.PMID)
	assert.Equal(t, "Deep Learning for Citation Screening", first.Title)
	assert.Equal(t, "10.1000/x", first.DOI)
	require.NotNil(t, first.Year)
	assert.Equal(t, 2019, *first.Year)
	assert.Equal(t, []string{"Chen L", "Okafor A"}, first.Authors)

	second := records[1]
	assert.Equal(t, "222", second.PMID)
	assert.Nil(t, second.Year)
	assert.Empty(t, second.DOI)
}

func TestFetchByIDs_EmptyBatch(t *testing.T) {
	client := NewClient("http://unused.invalid", 0, time.Second, zap.NewNop())
	records, err := client.FetchByIDs(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, records)
}

func TestFetchByIDs_UpstreamErrorIsExternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, time.Second, zap.NewNop())
	_, err := client.FetchByIDs(context.Background(), []string{"111"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestFetchByIDs_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, time.Second, zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := client.FetchByIDs(context.Background(), []string{"111"})
		require.Error(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())

	// The breaker is open now; the upstream is not touched again.
	_, err := client.FetchByIDs(context.Background(), []string{"111"})
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestParsePubYear(t *testing.T) {
	year := parsePubYear("2019 Jan 3")
	require.NotNil(t, year)
	assert.Equal(t, 2019, *year)

	assert.Nil(t, parsePubYear(""))
	assert.Nil(t, parsePubYear("Winter 2019"))
	assert.Nil(t, parsePubYear("99"))
}
