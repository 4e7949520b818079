package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/Wordle-KakaoTalk-bot/internal/announce"
	"github.com/park285/Wordle-KakaoTalk-bot/internal/domain"
)

func TestResolveExplicitReference(t *testing.T) {
	r := NewResolver(NewNameTable(map[string]string{"42": "999"}), nil)
	id, ok := r.Resolve("<@!42>")
	if !ok || id != "42" { t.Fatalf("got %q %v", id, ok) }
}

func TestResolveNameTableCaseInsensitive(t *testing.T) {
	r := NewResolver(NewNameTable(map[string]string{"Alice": "111"}), nil)
	for _, tok := range []string{"alice", " @ALICE ", "@Alice"} {
		if id, ok := r.Resolve(tok); !ok || id != "111" {
			t.Fatalf("Resolve(%q) = %q %v", tok, id, ok)
		}
	}
	if _, ok := r.Resolve("mallory"); ok { t.Fatalf("unknown name resolved") }
}

func TestResolveClaimsSkipsUnknownAndDedups(t *testing.T) {
	r := NewResolver(NewNameTable(map[string]string{"bob": "222"}), nil)
	claims := []announce.Claim{
		{Token: "@ghost", Attempts: 4},
		{Token: "<@222>", Attempts: 4},
		{Token: "bob", Attempts: 4},
	}
	res := r.ResolveClaims("p1", claims)
	if len(res.Outcomes) != 1 || res.Outcomes[0] != (domain.Outcome{Participant: "222", Attempts: 4}) {
		t.Fatalf("outcomes = %v", res.Outcomes)
	}
	if len(res.Unresolved) != 1 || res.Unresolved[0] != "@ghost" {
		t.Fatalf("unresolved = %v", res.Unresolved)
	}
}

func TestLoadNameTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.yaml")
	if err := os.WriteFile(path, []byte("names:\n  Alice: \"111\"\n  bob: \"222\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := LoadNameTable(path)
	if err != nil { t.Fatalf("LoadNameTable: %v", err) }
	if tbl.Len() != 2 { t.Fatalf("len = %d", tbl.Len()) }
	if id, ok := tbl.Lookup("ALICE"); !ok || id != "111" { t.Fatalf("lookup = %q %v", id, ok) }

	same := NewNameTable(map[string]string{"alice": "111", "BOB": "222"})
	if tbl.Version() != same.Version() { t.Fatalf("version mismatch: %s vs %s", tbl.Version(), same.Version()) }
}

func TestRedisDirectory(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := NewRedisDirectory(rdb)
	ctx := context.Background()

	if _, ok := d.DisplayName(ctx, "111"); ok { t.Fatalf("unexpected name before Remember") }
	if err := d.Remember(ctx, "111", "Alice"); err != nil { t.Fatalf("Remember: %v", err) }
	if n, ok := d.DisplayName(ctx, "111"); !ok || n != "Alice" { t.Fatalf("DisplayName = %q %v", n, ok) }
}

func TestMemoryDirectoryIgnoresBlank(t *testing.T) {
	d := NewMemoryDirectory()
	ctx := context.Background()
	_ = d.Remember(ctx, "1", "")
	if _, ok := d.DisplayName(ctx, "1"); ok { t.Fatalf("blank name stored") }
}
