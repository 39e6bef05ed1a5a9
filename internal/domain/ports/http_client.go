package ports

import (
	"net/http"
)

// HTTPClient sends acquirer requests; *http.Client satisfies it
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
