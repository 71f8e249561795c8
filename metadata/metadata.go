// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package metadata is a small database of runtime type descriptions, loaded
// from YAML, from which the signatures and interface identifiers of type
// expressions such as
//
//	Windows.Foundation.Collections.IObservableMap`2<String, Object>
//
// are computed without a compiled projection of the type.
package metadata

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dblohm7/wingrt"
	"github.com/dblohm7/wingrt/com"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Kind is the category of a runtime type.
type Kind string

const (
	KindInterface    = Kind("interface")
	KindDelegate     = Kind("delegate")
	KindRuntimeClass = Kind("runtimeclass")
	KindEnum         = Kind("enum")
)

// Type describes one runtime type. Generic types are named without their
// arity suffix.
type Type struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`
	// GUID is the metadata-assigned identifier of an interface or delegate,
	// or the template identifier when Arity is non-zero.
	GUID string `yaml:"guid,omitempty"`
	// Arity is the number of type parameters of a generic type.
	Arity int `yaml:"arity,omitempty"`
	// Default names the default interface of a runtime class.
	Default string `yaml:"default,omitempty"`
	// Flags marks an enum whose underlying type is UInt32 rather than Int32.
	Flags bool `yaml:"flags,omitempty"`

	iid *com.IID
}

// IID returns the parsed GUID of t, or nil for kinds that have none.
func (t *Type) IID() *com.IID {
	return t.iid
}

type file struct {
	Types []*Type `yaml:"types"`
}

// ErrUnknownType is returned for names the database does not describe.
var ErrUnknownType = errors.New("unknown type")

// DB is a set of type descriptions keyed by name. A DB is immutable once
// built and safe for concurrent use.
type DB struct {
	types map[string]*Type
}

//go:embed types.yaml
var defaultTypes []byte

// Default returns the built-in database, which covers the types projected by
// this module.
var Default = sync.OnceValue(func() *DB {
	db, err := Parse(defaultTypes)
	if err != nil {
		panic(fmt.Sprintf("metadata: built-in types: %v", err))
	}
	return db
})

// Parse builds a DB from a YAML document.
func Parse(data []byte) (*DB, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding type database: %w", err)
	}

	db := &DB{types: make(map[string]*Type, len(f.Types))}
	for i, t := range f.Types {
		if t == nil || t.Name == "" {
			return nil, fmt.Errorf("type %d: missing name", i)
		}
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("type %s: %w", t.Name, err)
		}
		if _, dup := db.types[t.Name]; dup {
			return nil, fmt.Errorf("type %s: defined more than once", t.Name)
		}
		db.types[t.Name] = t
	}
	return db, nil
}

func (t *Type) validate() error {
	if t.Arity < 0 {
		return fmt.Errorf("negative arity %d", t.Arity)
	}
	switch t.Kind {
	case KindInterface, KindDelegate:
		if t.GUID == "" {
			return fmt.Errorf("%s requires a guid", t.Kind)
		}
		u, err := uuid.Parse(t.GUID)
		if err != nil {
			return fmt.Errorf("guid: %w", err)
		}
		iid := com.IID(wingrt.GUIDFromBytes(u))
		t.iid = &iid
	case KindRuntimeClass:
		if t.Default == "" {
			return errors.New("runtime class requires a default interface")
		}
		if t.Arity != 0 {
			return errors.New("runtime classes cannot be generic")
		}
	case KindEnum:
		if t.Arity != 0 {
			return errors.New("enums cannot be generic")
		}
	default:
		return fmt.Errorf("unknown kind %q", t.Kind)
	}
	return nil
}

// LoadFile reads a YAML type database from path.
func LoadFile(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	com.Logger().Debug("loaded type database", zap.String("path", path), zap.Int("types", len(db.types)))
	return db, nil
}

// Extend returns a DB holding the types of db and other. Types in other
// replace same-named types in db.
func (db *DB) Extend(other *DB) *DB {
	merged := &DB{types: maps.Clone(db.types)}
	maps.Copy(merged.types, other.types)
	return merged
}

// Lookup returns the description of name.
func (db *DB) Lookup(name string) (*Type, bool) {
	t, ok := db.types[name]
	return t, ok
}

// Names returns the names of every type in db, sorted.
func (db *DB) Names() []string {
	names := maps.Keys(db.types)
	slices.Sort(names)
	return names
}

// Len returns the number of types in db.
func (db *DB) Len() int {
	return len(db.types)
}
