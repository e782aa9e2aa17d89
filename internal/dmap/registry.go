package dmap

import (
	"fmt"
	"sync"
)

// codeInfo is what the registry knows about a content code: its symbolic
// name and wire data type.
type codeInfo struct {
	name string
	typ  DataType
}

// Registry maps four-byte content codes to (name, type). It starts out
// holding just enough entries to parse a /content-codes response
// (bootstrap), and is then extended once per connection by Ingest. Per
// spec §5 the registry is a shared, process-wide resource when more than
// one Client is open concurrently, so all access goes through mu.
//
// Grounded on daap.py's module-level dmapCodeTypes dict and
// DAAPParseCodeTypes function; modeled here as an explicit value a Client
// holds a handle to (per DESIGN NOTES: "model as an explicit value...
// rather than global state") instead of a Python module global.
type Registry struct {
	mu  sync.RWMutex
	mp  map[Code]codeInfo
}

// fudge forces specific names to a type the server declares incorrectly.
// Ported from daap.py's dmapFudgeDataTypes.
var fudge = map[string]DataType{
	"dmap.authenticationschemes": TypeInt8,
}

// bootstrap holds exactly the codes needed to parse /content-codes itself,
// ported from daap.py's dmapCodeTypes initializer comment "these content
// codes are needed to learn all others".
func bootstrap() map[Code]codeInfo {
	return map[Code]codeInfo{
		NewCode("mccr"): {"dmap.contentcodesresponse", TypeContainer},
		NewCode("mstt"): {"dmap.status", TypeUint32},
		NewCode("mdcl"): {"dmap.dictionary", TypeContainer},
		NewCode("mcnm"): {"dmap.contentcodesnumber", TypeString},
		NewCode("mcna"): {"dmap.contentcodesname", TypeString},
		NewCode("mcty"): {"dmap.contentcodestype", TypeUint16},
	}
}

// NewRegistry returns a Registry preloaded with the bootstrap set.
func NewRegistry() *Registry {
	return &Registry{mp: bootstrap()}
}

// Lookup returns the name and type registered for code. found is false for
// an unrecognized code; callers carry the raw bytes forward in that case
// rather than failing (per §4.3).
func (r *Registry) Lookup(code Code) (name string, typ DataType, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ci, ok := r.mp[code]
	if !ok {
		return "", TypeUnknown, false
	}
	return ci.name, ci.typ, true
}

// set registers (or overwrites) one code. Writes are idempotent: the last
// write for a given code wins, matching daap.py's plain dict assignment.
func (r *Registry) set(code Code, name string, typ DataType) {
	r.mu.Lock()
	r.mp[code] = codeInfo{name: name, typ: typ}
	r.mu.Unlock()
}

// wireDataTypes is the fixed 12-entry table used to resolve
// dmap.contentcodestype's numeric value to a DataType (§6).
var wireDataTypes = map[int64]DataType{
	1: TypeInt8, 2: TypeUint8, 3: TypeInt16, 4: TypeUint16,
	5: TypeInt32, 6: TypeUint32, 7: TypeInt64, 8: TypeUint64,
	9: TypeString, 10: TypeTimestamp, 11: TypeVersion, 12: TypeContainer,
}

// Ingest extends the registry from a decoded /content-codes response. root
// must be the dmap.contentcodesresponse container; each dmap.dictionary
// child supplies one (code, name, type) triple. Logger is used for the
// "unknown type, defaulting to string" debug note from daap.py's
// DAAPParseCodeTypes, and for entries skipped because their code, name or
// type is missing; a nil logger is fine (no-op).
func (r *Registry) Ingest(root *Atom, logf func(format string, args ...interface{})) error {
	if root == nil || root.Name != "dmap.contentcodesresponse" {
		return fmt.Errorf("dmap: ingest: root is not dmap.contentcodesresponse")
	}
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	for _, child := range root.Children {
		switch child.Name {
		case "dmap.status":
			// nothing to do; just a status code.
		case "dmap.dictionary":
			if err := r.ingestDictionary(child, logf); err != nil {
				return err
			}
		default:
			return fmt.Errorf("dmap: ingest: unexpected top-level code %q (%s)", child.Code, child.Name)
		}
	}
	r.applyFudge()
	return nil
}

func (r *Registry) ingestDictionary(dict *Atom, logf func(string, ...interface{})) error {
	var code string
	var name string
	var typ DataType
	haveType := false
	for _, info := range dict.Children {
		switch info.Name {
		case "dmap.contentcodesnumber":
			if s, ok := info.String(); ok {
				code = s
			}
		case "dmap.contentcodesname":
			if s, ok := info.String(); ok {
				name = s
			}
		case "dmap.contentcodestype":
			if n, ok := info.Int(); ok {
				if t, known := wireDataTypes[n]; known {
					typ = t
					haveType = true
				} else {
					logf("dmap: unknown content-code type %d for %s, defaulting to string", n, name)
					typ = TypeString
					haveType = true
				}
			}
		default:
			return fmt.Errorf("dmap: ingest: unexpected code %q (%s) inside dmap.dictionary", info.Code, info.Name)
		}
	}
	if code == "" || name == "" || !haveType {
		logf("dmap: ingest: incomplete dictionary entry (code=%q name=%q), skipping", code, name)
		return nil
	}
	r.set(NewCode(code), name, typ)
	return nil
}

func (r *Registry) applyFudge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, ci := range r.mp {
		if t, ok := fudge[ci.name]; ok {
			ci.typ = t
			r.mp[code] = ci
		}
	}
}
