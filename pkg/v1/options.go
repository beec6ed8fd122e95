package v1

import "github.com/sirupsen/logrus"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	dir       string
	languages []string
	queueSize int
	logger    *logrus.Logger
}

// WithDir sets the directory whose repository is opened. Defaults to the
// working directory.
func WithDir(dir string) Option {
	return func(c *clientConfig) {
		c.dir = dir
	}
}

// WithLanguages restricts parsing to the named languages.
func WithLanguages(langs ...string) Option {
	return func(c *clientConfig) {
		c.languages = langs
	}
}

// WithQueueSize bounds the number of pending commands.
func WithQueueSize(n int) Option {
	return func(c *clientConfig) {
		c.queueSize = n
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// QueryOption refines a history query.
type QueryOption func(*queryConfig)

type queryConfig struct {
	targetKind string
	path       string
	language   string
	parent     string
	filters    []string
	direction  string
	limit      int
	ref        string
}

// InFile restricts the search to one repository-relative path.
func InFile(path string) QueryOption {
	return func(q *queryConfig) {
		q.targetKind, q.path = "absolute", path
	}
}

// InFileNamed searches every file whose path ends with name.
func InFileNamed(name string) QueryOption {
	return func(q *queryConfig) {
		q.targetKind, q.path = "relative", name
	}
}

// InDir searches every file below dir.
func InDir(dir string) QueryOption {
	return func(q *queryConfig) {
		q.targetKind, q.path = "directory", dir
	}
}

func WithLanguage(lang string) QueryOption {
	return func(q *queryConfig) {
		q.language = lang
	}
}

// WithParent selects definitions nested in parent, e.g. "Stack" or "a::b".
func WithParent(parent string) QueryOption {
	return func(q *queryConfig) {
		q.parent = parent
	}
}

// WithFilters adds filter expressions such as "author:alice" or
// "python:decorator=cache". All of them must hold.
func WithFilters(exprs ...string) QueryOption {
	return func(q *queryConfig) {
		q.filters = append(q.filters, exprs...)
	}
}

// WithDirection is one of oldest-first, newest-first or both.
func WithDirection(dir string) QueryOption {
	return func(q *queryConfig) {
		q.direction = dir
	}
}

// WithLimit stops after n commits per direction.
func WithLimit(n int) QueryOption {
	return func(q *queryConfig) {
		q.limit = n
	}
}

// At starts the walk at ref instead of HEAD.
func At(ref string) QueryOption {
	return func(q *queryConfig) {
		q.ref = ref
	}
}
