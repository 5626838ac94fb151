package policy

import (
	"os"

	"github.com/rs/zerolog"
)

// Result is the effective action and optional custom template for a request.
type Result struct {
	Action   Action
	Template string
}

type fileSystem interface {
	exists(path string) bool
}

// FileSystemImpl checks templates on the local disk.
type FileSystemImpl struct {
}

func (fs *FileSystemImpl) exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Resolver applies a route table to requests.
type Resolver struct {
	logger zerolog.Logger
	fs     fileSystem
}

// NewResolver creates a Resolver. Templates are checked for existence through fs.
func NewResolver(logger zerolog.Logger, fs fileSystem) *Resolver {
	return &Resolver{logger: logger, fs: fs}
}

// Resolve starts from the action for defaultHardness and lets every rule whose matcher equals
// routeKey, endpointName or the wildcard override it, in table order. A rule's template is only
// taken if it exists; its action applies either way. Rules with an unknown action change nothing
// but their template.
func (r *Resolver) Resolve(routeKey string, endpointName string, table Table, defaultHardness int) (res Result) {
	res.Action = DefaultAction(defaultHardness)

	for _, rule := range table {
		if !matches(rule.Matcher, routeKey, endpointName) {
			continue
		}

		if rule.Template != "" {
			if r.fs.exists(rule.Template) {
				res.Template = rule.Template
			} else {
				r.logger.Debug().Str("template", rule.Template).Str("matcher", rule.Matcher).Msg("Ignoring template that does not exist")
			}
		}

		if rule.Action.Valid() {
			res.Action = rule.Action
		}
	}

	return
}

func matches(matcher string, routeKey string, endpointName string) bool {
	if matcher == Wildcard || matcher == routeKey {
		return true
	}
	return endpointName != "" && matcher == endpointName
}
