package finz_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	finz "stockprovider/internal/provider/finz"
)

const indicatorsBody = `{
  "indicadores": {
    "PETR4": {"Cotação": "27,05", "P/L": "4,20", "Papel": "PETR4"},
    "VALE3": {"Cotação": "61,10"}
  }
}`

func TestGetIndicators(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/acoes/petr4", req.URL.Path)
			require.Equal(t, "test-key", req.URL.Query().Get("api_key"))

			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewBufferString(indicatorsBody)),
			}, nil
		}).
		Times(1)

	client, err := finz.NewClient("test-key", finz.WithHTTPClient(httpClient))
	require.NoError(t, err)

	table, err := client.GetIndicators(context.Background(), "acoes", "PETR4")
	require.NoError(t, err)
	require.Len(t, table, 2)
	require.Equal(t, "27,05", table["PETR4"]["Cotação"])
}

func TestGetIndicators_NotFoundIsEmptyTable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewBufferString(`{"error":"not found"}`)),
		}, nil).
		Times(1)

	client, err := finz.NewClient("", finz.WithHTTPClient(httpClient))
	require.NoError(t, err)

	table, err := client.GetIndicators(context.Background(), "acoes", "ZZZZ9")
	require.NoError(t, err)
	require.Empty(t, table)
}

func TestGetIndicators_UnexpectedStatus(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(bytes.NewBufferString("")),
		}, nil).
		Times(1)

	client, err := finz.NewClient("", finz.WithHTTPClient(httpClient))
	require.NoError(t, err)

	_, err = client.GetIndicators(context.Background(), "fiis", "HGLG11")
	require.Error(t, err)
}
