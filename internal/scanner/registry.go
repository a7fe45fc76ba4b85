package scanner

import (
	"strings"
	"sync"
)

var pkg = struct {
	sync.Mutex
	fs     map[string]Factory
	aliases map[string]string
}{
	fs:      make(map[string]Factory),
	aliases: make(map[string]string),
}

// Register registers a scanner Factory under name plus any aliases.
// Register panics if a name or alias is registered twice.
func Register(name string, f Factory, aliases ...string) {
	pkg.Lock()
	defer pkg.Unlock()
	key := strings.ToLower(name)
	if _, ok := pkg.fs[key]; ok {
		panic("scanner: duplicate registration for " + name)
	}
	pkg.fs[key] = f
	pkg.aliases[key] = key
	for _, alias := range aliases {
		ak := strings.ToLower(alias)
		if _, ok := pkg.aliases[ak]; ok {
			panic("scanner: duplicate alias registration for " + alias)
		}
		pkg.aliases[ak] = key
	}
}

// Registered returns a defensive copy of the canonical-name -> Factory
// table.
func Registered() map[string]Factory {
	pkg.Lock()
	defer pkg.Unlock()
	out := make(map[string]Factory, len(pkg.fs))
	for k, v := range pkg.fs {
		out[k] = v
	}
	return out
}

// Resolve case-folds and resolves an alias to its canonical registered
// name. The second return is false if name is unknown.
func Resolve(name string) (string, bool) {
	pkg.Lock()
	defer pkg.Unlock()
	canonical, ok := pkg.aliases[strings.ToLower(name)]
	return canonical, ok
}

// Aliases returns a defensive copy of the alias/canonical-name -> canonical
// name table, for callers that need to resolve manager names without
// depending on this package's global registry (e.g. the Orchestrator).
func Aliases() map[string]string {
	pkg.Lock()
	defer pkg.Unlock()
	out := make(map[string]string, len(pkg.aliases))
	for k, v := range pkg.aliases {
		out[k] = v
	}
	return out
}
