package procfs

import (
	"os/user"
	"testing"
)

func TestLookupCredentialEmptyMeansNoDrop(t *testing.T) {
	cred, err := LookupCredential("", "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if cred != nil {
		t.Fatalf("cred = %+v, want nil", cred)
	}
}

func TestLookupCredentialNumericIDs(t *testing.T) {
	cred, err := LookupCredential("1234", "5678")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if cred == nil || cred.UID != 1234 || cred.GID != 5678 {
		t.Fatalf("cred = %+v, want uid 1234 gid 5678", cred)
	}
}

func TestLookupCredentialCurrentUserByName(t *testing.T) {
	current, err := user.Current()
	if err != nil {
		t.Skipf("current user unavailable: %v", err)
	}

	cred, err := LookupCredential(current.Username, "")
	if err != nil {
		t.Fatalf("lookup %q: %v", current.Username, err)
	}
	if cred == nil {
		t.Fatal("cred is nil")
	}
	wantUID, err := parseID(current.Uid)
	if err != nil {
		t.Skipf("non-numeric uid %q", current.Uid)
	}
	if cred.UID != wantUID {
		t.Fatalf("uid = %d, want %d", cred.UID, wantUID)
	}
	wantGID, err := parseID(current.Gid)
	if err != nil {
		t.Skipf("non-numeric gid %q", current.Gid)
	}
	// Group omitted: primary group of the user applies.
	if cred.GID != wantGID {
		t.Fatalf("gid = %d, want primary gid %d", cred.GID, wantGID)
	}
}

func TestLookupCredentialUnknownUser(t *testing.T) {
	if _, err := LookupCredential("no-such-user-warden-test", ""); err == nil {
		t.Fatal("expected error for unknown user")
	}
}

func TestLookupCredentialUnknownGroup(t *testing.T) {
	if _, err := LookupCredential("", "no-such-group-warden-test"); err == nil {
		t.Fatal("expected error for unknown group")
	}
}
