package ipreputation

import (
	"net/netip"
)

// binaryTrie matches addresses against a set of prefixes, one bit per level.
type binaryTrie struct {
	v4 *nodeImpl
	v6 *nodeImpl
}

func newBinaryTrie(prefixes []netip.Prefix) (t *binaryTrie) {
	t = &binaryTrie{v4: newNode(), v6: newNode()}
	t.populate(prefixes)
	return
}

func (t *binaryTrie) rootFor(ip netip.Addr) *nodeImpl {
	if ip.Is4() {
		return t.v4
	}
	return t.v6
}

func (t *binaryTrie) populate(prefixes []netip.Prefix) {
	for _, p := range prefixes {
		ip := p.Addr().Unmap()
		raw := ip.AsSlice()
		mask := p.Bits()
		node := t.rootFor(ip)

		for depth := 0; depth <= len(raw)*8; depth++ {
			if node.isMatch() {
				break
			}
			if depth == mask {
				node.setMatch()
				break
			}

			var child *nodeImpl
			if getBitAtIndex(raw, depth) == 0 {
				child = node.getZero()
				if child == nil {
					child = node.setZero()
				}
			} else {
				child = node.getOne()
				if child == nil {
					child = node.setOne()
				}
			}
			node = child
		}
	}
}

func (t *binaryTrie) match(ip netip.Addr) bool {
	ip = ip.Unmap()
	raw := ip.AsSlice()
	node := t.rootFor(ip)

	for i := 0; i < len(raw)*8; i++ {
		if node.isMatch() {
			return true
		}

		if getBitAtIndex(raw, i) == 1 {
			node = node.getOne()
		} else {
			node = node.getZero()
		}
		if node == nil {
			return false
		}
	}

	return node.isMatch()
}

type nodeImpl struct {
	match bool
	one   *nodeImpl
	zero  *nodeImpl
}

func newNode() *nodeImpl {
	return &nodeImpl{}
}

func (n *nodeImpl) getOne() *nodeImpl {
	return n.one
}

func (n *nodeImpl) setOne() *nodeImpl {
	n.one = newNode()
	return n.one
}

func (n *nodeImpl) getZero() *nodeImpl {
	return n.zero
}

func (n *nodeImpl) setZero() *nodeImpl {
	n.zero = newNode()
	return n.zero
}

func (n *nodeImpl) isMatch() bool {
	return n.match
}

func (n *nodeImpl) setMatch() {
	n.match = true
}

// Returns the value of the bit at index i, counting from the most significant bit of b[0]
func getBitAtIndex(b []byte, index int) int {
	return int(b[index/8]>>(7-uint(index%8))) & 1
}
