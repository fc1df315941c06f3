package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n50osm/n50osm/internal/model"
	"github.com/n50osm/n50osm/internal/osmerr"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestN50ZipURLTransliteratesNordicLetters(t *testing.T) {
	got := N50ZipURL("https://example.test", "5001", "Trondheim")
	assert.Equal(t, "https://example.test/Basisdata/N50Kartdata/GML/Basisdata_5001_TRONDHEIM_25833_N50Kartdata_GML.zip", got)

	got = N50ZipURL("https://example.test", "1867", "Bø")
	assert.Contains(t, got, "Basisdata_1867_BO_25833")
}

func TestLookupMunicipalityByCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"kommunenummer":"5001","kommunenavnNorsk":"Trondheim"}`)
	}))
	defer srv.Close()

	c := New(Config{KommuneinfoBaseURL: srv.URL}, discardLogger())
	m, err := c.LookupMunicipality(context.Background(), "5001")
	require.NoError(t, err)
	assert.Equal(t, Municipality{Code: "5001", Name: "Trondheim"}, m)
}

func TestLookupMunicipalityByNameSingleMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kommuner":[{"kommunenummer":"5001","kommunenavnNorsk":"Trondheim"}]}`)
	}))
	defer srv.Close()

	c := New(Config{KommuneinfoBaseURL: srv.URL}, discardLogger())
	m, err := c.LookupMunicipality(context.Background(), "Trondheim")
	require.NoError(t, err)
	assert.Equal(t, "5001", m.Code)
}

func TestLookupMunicipalityByNameAmbiguous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kommuner":[
			{"kommunenummer":"1867","kommunenavnNorsk":"Bø"},
			{"kommunenummer":"3813","kommunenavnNorsk":"Bø"}
		]}`)
	}))
	defer srv.Close()

	c := New(Config{KommuneinfoBaseURL: srv.URL}, discardLogger())
	_, err := c.LookupMunicipality(context.Background(), "Bø")

	var ambiguous *osmerr.ErrAmbiguousMunicipality
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Matches, 2)
}

func TestLookupMunicipalityByNameNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kommuner":[]}`)
	}))
	defer srv.Close()

	c := New(Config{KommuneinfoBaseURL: srv.URL}, discardLogger())
	_, err := c.LookupMunicipality(context.Background(), "Nowhere")

	var notFound *osmerr.ErrMunicipalityNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestLookupMunicipalityByCodeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{KommuneinfoBaseURL: srv.URL}, discardLogger())
	_, err := c.LookupMunicipality(context.Background(), "0000")

	var notFound *osmerr.ErrMunicipalityNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestFetchN50ZipReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Basisdata_5001_TRONDHEIM_25833")
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()

	c := New(Config{N50BaseURL: srv.URL}, discardLogger())
	data, err := c.FetchN50Zip(context.Background(), "5001", "Trondheim")
	require.NoError(t, err)
	assert.Equal(t, []byte("zip-bytes"), data)
}

func TestFetchPlaceRecordsParsesTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<osm><node id="1" lat="63.43" lon="10.39">
			<tag k="name" v="Trondheim"/>
			<tag k="ssr:type" v="by"/>
			<tag k="ssr:stedsnr" v="12345"/>
		</node></osm>`)
	}))
	defer srv.Close()

	c := New(Config{SSRNamesBaseURL: srv.URL}, discardLogger())
	records, err := c.FetchPlaceRecords(context.Background(), "5001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Trondheim", records[0].Name)
	assert.Equal(t, "by", records[0].SSRType)
	assert.Equal(t, "12345", records[0].SSRID)
}

func TestFetchLakeRecordsPagesUntilTransferLimitNotExceeded(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"features":[{"attributes":{"vatnLnr":1,"navn":"Storvatnet","arealKm2":1.2,"magasinNr":""}}],"exceededTransferLimit":true}`)
			return
		}
		fmt.Fprint(w, `{"features":[{"attributes":{"vatnLnr":2,"navn":"Lillevatnet","arealKm2":0.2,"magasinNr":""}}],"exceededTransferLimit":false}`)
	}))
	defer srv.Close()

	c := New(Config{NVELakesBaseURL: srv.URL}, discardLogger())
	records, err := c.FetchLakeRecords(context.Background(), "5001")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Storvatnet", records[0].Name)
	assert.Equal(t, "Lillevatnet", records[1].Name)
}

func TestElevationAtRetriesOnFailureThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"punkter":[{"z":123.4}]}`)
	}))
	defer srv.Close()

	c := New(Config{ElevationBaseURL: srv.URL}, discardLogger())
	c.retry.InitialBackoff = time.Millisecond
	c.retry.MaxBackoff = 2 * time.Millisecond

	z, err := c.ElevationAt(context.Background(), model.NewNode(10, 63))
	require.NoError(t, err)
	assert.Equal(t, 123.4, z)
	assert.Equal(t, 3, calls)
}

func TestFetchBuildingTypesCSVReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "kode;type\n111;Enebolig\n")
	}))
	defer srv.Close()

	c := New(Config{BuildingTypesURL: srv.URL}, discardLogger())
	data, err := c.FetchBuildingTypesCSV(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Enebolig")
}

func TestElevationAtGivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{ElevationBaseURL: srv.URL}, discardLogger())
	c.retry.MaxRetries = 1
	c.retry.InitialBackoff = time.Millisecond
	c.retry.MaxBackoff = 2 * time.Millisecond

	_, err := c.ElevationAt(context.Background(), model.NewNode(10, 63))
	assert.Error(t, err)
}
