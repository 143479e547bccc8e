package procfs

import (
	"fmt"
	"os/user"
	"strconv"
)

// LookupCredential resolves run-as names to numeric ids. Either value may be
// an account name or a numeric id. When only the user is given, the group
// defaults to that user's primary group. Empty inputs mean no privilege
// change and yield a nil credential.
func LookupCredential(userName, groupName string) (*Credential, error) {
	if userName == "" && groupName == "" {
		return nil, nil
	}

	cred := &Credential{}
	var primaryGID string

	if userName != "" {
		uid, gid, err := resolveUser(userName)
		if err != nil {
			return nil, err
		}
		cred.UID = uid
		primaryGID = gid
	}

	switch {
	case groupName != "":
		gid, err := resolveGroup(groupName)
		if err != nil {
			return nil, err
		}
		cred.GID = gid
	case primaryGID != "":
		gid, err := parseID(primaryGID)
		if err != nil {
			return nil, fmt.Errorf("primary group of user %q: %w", userName, err)
		}
		cred.GID = gid
	}

	return cred, nil
}

func resolveUser(name string) (uid uint32, primaryGID string, err error) {
	if id, parseErr := parseID(name); parseErr == nil {
		u, lookupErr := user.LookupId(strconv.FormatUint(uint64(id), 10))
		if lookupErr != nil {
			// A numeric uid is usable even without a passwd entry.
			return id, "", nil
		}
		return id, u.Gid, nil
	}
	u, lookupErr := user.Lookup(name)
	if lookupErr != nil {
		return 0, "", fmt.Errorf("user does not exist: %q", name)
	}
	id, parseErr := parseID(u.Uid)
	if parseErr != nil {
		return 0, "", fmt.Errorf("uid of user %q: %w", name, parseErr)
	}
	return id, u.Gid, nil
}

func resolveGroup(name string) (uint32, error) {
	if id, err := parseID(name); err == nil {
		return id, nil
	}
	g, err := user.LookupGroup(name)
	if err != nil {
		return 0, fmt.Errorf("group does not exist: %q", name)
	}
	id, err := parseID(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("gid of group %q: %w", name, err)
	}
	return id, nil
}

func parseID(value string) (uint32, error) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not a numeric id: %q", value)
	}
	return uint32(id), nil
}
