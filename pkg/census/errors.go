package census

import (
	"errors"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acs-loader/internal/fetcher"
)

// MaxFields is the number of variables the API accepts in one "get".
const MaxFields = 50

// ErrUnsupportedYear is returned when the dataset is not published for the
// requested year.
var ErrUnsupportedYear = eris.New("census: unsupported year")

// classify maps fetcher errors onto the package sentinels.
func classify(err error, dataset string, year int) error {
	var se *fetcher.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return eris.Wrapf(ErrUnsupportedYear, "census: %s %d", dataset, year)
	}
	return eris.Wrapf(err, "census: fetch %s %d", dataset, year)
}
