package models

import "fmt"

// PermissionLevel is the ordered access level of an employee.
type PermissionLevel uint8

// Permission levels, lowest first. The zero value is PermNone.
const (
	PermNone PermissionLevel = iota
	PermBasic
	PermUser
	PermManager
	PermAdmin
	PermDev
)

var permissionNames = map[PermissionLevel]string{
	PermNone:    "None",
	PermBasic:   "Basic",
	PermUser:    "User",
	PermManager: "Manager",
	PermAdmin:   "Admin",
	PermDev:     "Dev",
}

// String returns the level name as stored in the remote tables.
func (p PermissionLevel) String() string {
	if s, ok := permissionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("PermissionLevel(%d)", uint8(p))
}

// AtLeast reports whether p grants everything min grants.
func (p PermissionLevel) AtLeast(min PermissionLevel) bool { return p >= min }

// MarshalText encodes the level by name.
func (p PermissionLevel) MarshalText() ([]byte, error) {
	s, ok := permissionNames[p]
	if !ok {
		return nil, fmt.Errorf("invalid permission level %d", uint8(p))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a level name.
func (p *PermissionLevel) UnmarshalText(b []byte) error {
	lvl, err := ParsePermissionLevel(string(b))
	if err != nil {
		return err
	}
	*p = lvl
	return nil
}

// ParsePermissionLevel maps a level name to its value.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	for lvl, name := range permissionNames {
		if name == s {
			return lvl, nil
		}
	}
	return PermNone, fmt.Errorf("unknown permission level %q", s)
}

// MediaType tells the kinds of catalog items apart.
type MediaType string

// Known media types. MediaNone is the default of a fresh record.
const (
	MediaBook      MediaType = "Book"
	MediaVideoGame MediaType = "VideoGame"
	MediaMovie     MediaType = "Movie"
	MediaMusic     MediaType = "Music"
	MediaNone      MediaType = "None"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	switch t {
	case MediaBook, MediaVideoGame, MediaMovie, MediaMusic, MediaNone:
		return true
	}
	return false
}

// String returns the human readable label.
func (t MediaType) String() string {
	if t == MediaVideoGame {
		return "Video Game"
	}
	if t == "" {
		return string(MediaNone)
	}
	return string(t)
}
