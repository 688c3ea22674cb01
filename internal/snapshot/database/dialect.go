package database

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopmonkeyus/anonymizer/internal/util"
)

// dialect holds the SQL differences between the supported databases.
type dialect struct {
	name       string
	driverName string

	// dsn converts the URL into a driver connection string and returns the schema named by the URL.
	dsn func(urlstr string) (string, string, error)

	currentSchema    string
	columnsQuery     string
	foreignKeysQuery string
	preamble         string

	quoteIdentifier func(string) string
	quoteString     func(string) string
	quoteBytes      func([]byte) string
	quoteBool       func(bool) string
	timeFormat      string
	qualify         bool
}

// table returns the quoted name of the table.
func (d *dialect) table(schema, name string) string {
	if d.qualify && schema != "" {
		return d.quoteIdentifier(schema) + "." + d.quoteIdentifier(name)
	}
	return d.quoteIdentifier(name)
}

func (d *dialect) quoteValue(arg any) string {
	switch arg := arg.(type) {
	case nil:
		return "NULL"
	case string:
		return d.quoteString(arg)
	case json.Number:
		if _, err := strconv.ParseFloat(string(arg), 64); err == nil {
			return string(arg)
		}
		return d.quoteString(string(arg))
	case bool:
		return d.quoteBool(arg)
	case []byte:
		return d.quoteBytes(arg)
	case time.Time:
		return d.quoteString(arg.UTC().Truncate(time.Microsecond).Format(d.timeFormat))
	case float32:
		return strconv.FormatFloat(float64(arg), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(arg, 'f', -1, 64)
	}
	value := reflect.ValueOf(arg)
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(value.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(value.Uint(), 10)
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return d.quoteString(util.JSONStringify(arg))
	case reflect.Ptr:
		if value.IsNil() {
			return "NULL"
		}
		return d.quoteValue(value.Elem().Interface())
	}
	return d.quoteString(fmt.Sprintf("%v", arg))
}

var postgres = &dialect{
	name:          "postgres",
	driverName:    "postgres",
	dsn:           postgresConnectionString,
	currentSchema: "current_schema()",
	columnsQuery: `SELECT c.table_name, c.column_name, c.data_type FROM information_schema.columns c
JOIN information_schema.tables t ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'`,
	foreignKeysQuery: `SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1
ORDER BY kcu.table_name, kcu.column_name`,
	preamble:        "SET CONSTRAINTS ALL DEFERRED",
	quoteIdentifier: pq.QuoteIdentifier,
	quoteString:     pq.QuoteLiteral,
	quoteBytes: func(buf []byte) string {
		return `'\x` + hex.EncodeToString(buf) + "'"
	},
	quoteBool:  strconv.FormatBool,
	timeFormat: "2006-01-02 15:04:05.999999Z07:00",
	qualify:    true,
}

var mysqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\x00", `\0`, "\n", `\n`, "\r", `\r`, "\x1a", `\Z`)

var mysql = &dialect{
	name:          "mysql",
	driverName:    "mysql",
	dsn:           mysqlDSN,
	currentSchema: "DATABASE()",
	columnsQuery: `SELECT c.table_name, c.column_name, c.data_type FROM information_schema.columns c
JOIN information_schema.tables t ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = ? AND t.table_type = 'BASE TABLE'`,
	foreignKeysQuery: `SELECT table_name, column_name, referenced_table_name, referenced_column_name FROM information_schema.key_column_usage
WHERE table_schema = ? AND referenced_table_name IS NOT NULL
ORDER BY table_name, column_name`,
	preamble: "SET FOREIGN_KEY_CHECKS=0",
	quoteIdentifier: func(val string) string {
		return "`" + strings.ReplaceAll(val, "`", "``") + "`"
	},
	quoteString: func(val string) string {
		return "'" + mysqlEscaper.Replace(val) + "'"
	},
	quoteBytes: func(buf []byte) string {
		return "X'" + hex.EncodeToString(buf) + "'"
	},
	quoteBool: func(val bool) string {
		if val {
			return "1"
		}
		return "0"
	},
	timeFormat: "2006-01-02 15:04:05.999999",
}

// isLocalhost returns true if the host is localhost or 127.0.0.1 or 0.0.0.0.
func isLocalhost(host string) bool {
	return strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") || strings.Contains(host, "0.0.0.0")
}

// userPass returns the user:pass of the URL.
func userPass(u *url.URL) string {
	var res strings.Builder
	res.WriteString(u.User.Username())
	if pass, ok := u.User.Password(); ok {
		res.WriteString(":")
		res.WriteString(pass)
	}
	return res.String()
}

func postgresConnectionString(urlstr string) (string, string, error) {
	u, err := url.Parse(urlstr)
	if err != nil {
		return "", "", fmt.Errorf("error parsing postgres db url: %w", err)
	}
	u.Scheme = "postgresql"
	if u.Port() == "" {
		u.Host = u.Host + ":5432"
	}
	q := u.Query()
	schema := q.Get("schema")
	q.Del("schema")
	if !q.Has("application_name") {
		q.Set("application_name", "anonymizer")
	}
	if isLocalhost(u.Host) && !q.Has("sslmode") {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String(), schema, nil
}

func mysqlDSN(urlstr string) (string, string, error) {
	//username:password@protocol(address)/dbname?param=value
	u, err := url.Parse(urlstr)
	if err != nil {
		return "", "", fmt.Errorf("error parsing url: %w", err)
	}
	vals := u.Query()
	vals.Set("multiStatements", "true")
	var dsn strings.Builder
	if u.User != nil {
		dsn.WriteString(userPass(u))
		dsn.WriteString("@")
	}
	dsn.WriteString("tcp(")
	dsn.WriteString(u.Host)
	dsn.WriteString(")")
	dsn.WriteString(u.Path)
	dsn.WriteString("?")
	dsn.WriteString(vals.Encode())
	return dsn.String(), strings.TrimPrefix(u.Path, "/"), nil
}

var integerTypes = map[string]bool{
	"smallint": true, "integer": true, "bigint": true, "int": true, "tinyint": true, "mediumint": true,
	"int2": true, "int4": true, "int8": true, "serial": true, "bigserial": true,
}

var floatTypes = map[string]bool{
	"real": true, "double precision": true, "double": true, "float": true, "float4": true, "float8": true,
}

var binaryTypes = map[string]bool{
	"bytea": true, "blob": true, "tinyblob": true, "mediumblob": true, "longblob": true, "binary": true, "varbinary": true,
}

// normalize converts a scanned value into the representation used by the anonymizer. Driver text is turned
// into numbers for numeric columns and into strings otherwise.
func normalize(v any, dataType string) any {
	buf, ok := v.([]byte)
	if !ok {
		return v
	}
	dt := strings.ToLower(dataType)
	text := string(buf)
	switch {
	case integerTypes[dt]:
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i
		}
	case dt == "numeric" || dt == "decimal":
		return json.Number(text)
	case floatTypes[dt]:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case dt == "boolean" || dt == "bool":
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	case binaryTypes[dt]:
		res := make([]byte, len(buf))
		copy(res, buf)
		return res
	}
	return text
}
