package source

import (
	"context"
	"encoding/csv"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BoxOfficeClient reads the box-office table snapshot: a CSV flat file
// published over http(s) or delivered on an FTP drop, the usual formats for
// box-office data vendors. Rows with any missing column (the source marks
// gaps with "-") are dropped before they reach the core.
type BoxOfficeClient struct {
	snapshotURL string
	http        *http.Client
	ftpTimeout  time.Duration
}

// BoxOfficeOption configures the box-office client.
type BoxOfficeOption func(*BoxOfficeClient)

// WithBoxOfficeHTTPClient sets a custom HTTP client.
func WithBoxOfficeHTTPClient(hc *http.Client) BoxOfficeOption {
	return func(c *BoxOfficeClient) { c.http = hc }
}

// NewBoxOfficeClient creates a client for the given snapshot URL.
func NewBoxOfficeClient(snapshotURL string, opts ...BoxOfficeOption) *BoxOfficeClient {
	c := &BoxOfficeClient{
		snapshotURL: snapshotURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		ftpTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// snapshot column headers, matched case-insensitively.
const (
	colTitle       = "release title"
	colGross       = "gross"
	colTheaters    = "theaters"
	colTotalGross  = "total gross"
	colDistributor = "distributor"
)

// FetchTable downloads and parses the snapshot. Returns every complete row.
func (c *BoxOfficeClient) FetchTable(ctx context.Context) ([]BoxOfficeRow, error) {
	rc, err := c.open(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "boxoffice: open snapshot")
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "boxoffice: read header")
	}
	idx := map[string]int{}
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colTitle, colGross, colTheaters, colTotalGross, colDistributor} {
		if _, ok := idx[required]; !ok {
			return nil, eris.Errorf("boxoffice: snapshot missing column %q", required)
		}
	}

	var rows []BoxOfficeRow
	dropped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "boxoffice: read row")
		}

		row := BoxOfficeRow{
			Title:        cell(record, idx[colTitle]),
			OpeningGross: cell(record, idx[colGross]),
			Theaters:     cell(record, idx[colTheaters]),
			TotalGross:   cell(record, idx[colTotalGross]),
			Distributor:  cell(record, idx[colDistributor]),
		}
		if row.Title == "" || row.OpeningGross == "" || row.Theaters == "" ||
			row.TotalGross == "" || row.Distributor == "" {
			dropped++
			continue
		}
		rows = append(rows, row)
	}

	if dropped > 0 {
		zap.L().Debug("boxoffice: dropped incomplete rows", zap.Int("dropped", dropped))
	}
	return rows, nil
}

// cell returns the normalized cell value at i: trimmed, with the source's
// "-" null marker mapped to "".
func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	v := strings.TrimSpace(record[i])
	if v == "-" {
		return ""
	}
	return v
}

func (c *BoxOfficeClient) open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(c.snapshotURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse snapshot url %q", c.snapshotURL)
	}

	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.snapshotURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "do request")
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, eris.Errorf("status %d", resp.StatusCode)
		}
		return resp.Body, nil
	case "ftp":
		return c.openFTP(ctx, u)
	default:
		return nil, eris.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (c *BoxOfficeClient) openFTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(c.ftpTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp login")
	}
	resp, err := conn.Retr(u.Path)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp retrieve")
	}
	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// ftpConnReader ties the FTP response to its connection so closing the
// reader also releases the connection.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}
