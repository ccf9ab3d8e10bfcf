// Package trie implements the per-character prefix index used to search
// record names.
package trie

type node struct {
	word     bool
	children map[rune]*node
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Trie stores strings one node per character. It is not safe for
// concurrent mutation; readers may share a Trie once it is no longer
// written to.
type Trie struct {
	root *node
	size int
}

// New returns an empty Trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Insert adds s. Inserting the same string twice has no further effect.
func (t *Trie) Insert(s string) {
	cur := t.root
	for _, c := range s {
		next, ok := cur.children[c]
		if !ok {
			next = newNode()
			cur.children[c] = next
		}
		cur = next
	}
	if !cur.word {
		cur.word = true
		t.size++
	}
}

// Len returns the number of distinct strings stored.
func (t *Trie) Len() int { return t.size }

// StartsWith returns every stored string that has prefix as a prefix,
// including prefix itself when stored. The boolean is false when no stored
// string has the prefix. Order follows the tree walk and is unspecified.
func (t *Trie) StartsWith(prefix string) ([]string, bool) {
	n := t.traverse(prefix)
	if n == nil {
		return nil, false
	}
	out := []string{}
	collect(n, []rune(prefix), &out)
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// Search is StartsWith with the exact match, if stored, moved to the head
// of the result.
func (t *Trie) Search(name string) ([]string, bool) {
	n := t.traverse(name)
	if n == nil {
		return nil, false
	}
	out := []string{}
	if n.word {
		out = append(out, name)
	}
	buf := []rune(name)
	for c, child := range n.children {
		collect(child, append(buf, c), &out)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (t *Trie) traverse(prefix string) *node {
	cur := t.root
	for _, c := range prefix {
		next, ok := cur.children[c]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func collect(n *node, buf []rune, out *[]string) {
	if n.word {
		*out = append(*out, string(buf))
	}
	for c, child := range n.children {
		collect(child, append(buf, c), out)
	}
}
