// Package snapshot reads and writes relational snapshots from files and databases.
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/go-common/logger"
)

// Config is the configuration passed to a driver when a reader or writer is created.
type Config struct {
	// Context for the reader or writer.
	Context context.Context

	// URL of the snapshot.
	URL string

	// Logger to use for logging.
	Logger logger.Logger

	// Tables limits the tables read, all tables are read when empty.
	Tables []string

	// DryRun logs the statements a writer would execute instead of executing them.
	DryRun bool
}

// Reader loads a snapshot.
type Reader interface {
	// Read returns the tables of the snapshot with the relationships declared by the source.
	Read(ctx context.Context) ([]*internal.RelationalTable, error)

	// Close releases the resources of the reader.
	Close() error
}

// Writer stores a snapshot.
type Writer interface {
	// Write stores the tables. Tables are written in dependency order.
	Write(ctx context.Context, tables []*internal.RelationalTable) error

	// Close releases the resources of the writer.
	Close() error
}

// Driver creates readers and writers for a URL scheme.
type Driver interface {
	NewReader(config Config) (Reader, error)
	NewWriter(config Config) (Writer, error)
}

// DriverAlias is implemented by drivers which handle more than one scheme.
type DriverAlias interface {
	// Aliases returns the additional schemes of the driver.
	Aliases() []string
}

// DriverHelp is implemented by drivers which describe themselves.
type DriverHelp interface {
	Name() string
	Description() string
	ExampleURL() string
	Help() string
}

// DriverMetadata describes a registered driver.
type DriverMetadata struct {
	Scheme      string `json:"scheme"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ExampleURL  string `json:"exampleURL"`
	Help        string `json:"help"`
}

var registryLock sync.RWMutex

var (
	driverRegistry = map[string]Driver{}
	aliasRegistry  = map[string]string{}
)

// RegisterDriver registers a driver for the scheme and its aliases.
func RegisterDriver(scheme string, driver Driver) {
	registryLock.Lock()
	defer registryLock.Unlock()
	driverRegistry[scheme] = driver
	if p, ok := driver.(DriverAlias); ok {
		for _, alias := range p.Aliases() {
			aliasRegistry[alias] = scheme
		}
	}
}

// Drivers returns the metadata of the registered drivers sorted by scheme.
func Drivers() []DriverMetadata {
	registryLock.RLock()
	defer registryLock.RUnlock()
	res := make([]DriverMetadata, 0, len(driverRegistry))
	for scheme, driver := range driverRegistry {
		md := DriverMetadata{Scheme: scheme, Name: scheme}
		if help, ok := driver.(DriverHelp); ok {
			md.Name = help.Name()
			md.Description = help.Description()
			md.ExampleURL = help.ExampleURL()
			md.Help = ansi.Strip(help.Help())
		}
		res = append(res, md)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Scheme < res[j].Scheme })
	return res
}

func driverFor(urlString string) (Driver, string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse URL: %w", err)
	}
	registryLock.RLock()
	defer registryLock.RUnlock()
	driver := driverRegistry[u.Scheme]
	if driver == nil {
		if scheme := aliasRegistry[u.Scheme]; scheme != "" {
			driver = driverRegistry[scheme]
		}
	}
	if driver == nil {
		return nil, "", fmt.Errorf("no snapshot driver registered for protocol %s", u.Scheme)
	}
	return driver, u.Scheme, nil
}

func newConfig(ctx context.Context, log logger.Logger, urlString, scheme string, dryRun bool, tables []string) Config {
	return Config{
		Context: ctx,
		URL:     urlString,
		Logger:  log.WithPrefix(fmt.Sprintf("[%s]", scheme)),
		Tables:  tables,
		DryRun:  dryRun,
	}
}

// NewReader returns a reader for the snapshot at the URL.
func NewReader(ctx context.Context, log logger.Logger, urlString string, tables []string) (Reader, error) {
	driver, scheme, err := driverFor(urlString)
	if err != nil {
		return nil, err
	}
	return driver.NewReader(newConfig(ctx, log, urlString, scheme, false, tables))
}

// NewWriter returns a writer for the snapshot at the URL.
func NewWriter(ctx context.Context, log logger.Logger, urlString string, dryRun bool) (Writer, error) {
	driver, scheme, err := driverFor(urlString)
	if err != nil {
		return nil, err
	}
	return driver.NewWriter(newConfig(ctx, log, urlString, scheme, dryRun, nil))
}

// Filter returns the names of the tables to keep. Every table is kept when only is empty.
func Filter(names []string, only []string) []string {
	if len(only) == 0 {
		return names
	}
	keep := make(map[string]bool, len(only))
	for _, n := range only {
		keep[n] = true
	}
	var res []string
	for _, n := range names {
		if keep[n] {
			res = append(res, n)
		}
	}
	return res
}

// Order returns the tables sorted so that referenced tables come before the tables referencing them.
func Order(tables []*internal.RelationalTable) ([]*internal.RelationalTable, error) {
	byName := make(map[string]*internal.RelationalTable, len(tables))
	names := make([]string, 0, len(tables))
	var rels []internal.ForeignKeyRelationship
	for _, t := range tables {
		byName[t.Name] = t
		names = append(names, t.Name)
		for _, rel := range t.Relationships {
			if rel.SourceTable == "" {
				rel.SourceTable = t.Name
			}
			if containsTable(tables, rel.TargetTable) {
				rels = append(rels, rel)
			}
		}
	}
	order, err := internal.ProcessingOrder(names, rels)
	if err != nil {
		return nil, err
	}
	res := make([]*internal.RelationalTable, 0, len(order))
	for _, dep := range order {
		res = append(res, byName[dep.Table])
	}
	return res, nil
}

func containsTable(tables []*internal.RelationalTable, name string) bool {
	for _, t := range tables {
		if t.Name == name {
			return true
		}
	}
	return false
}
