package resource

import "sync"

// chain is the ordered stack of open resource files. The system file,
// if any, is kept at index 0 and is always searched last; "current" is
// whichever file UseResFile most recently named, defaulting to the top
// of the stack.
//
// Cyclic next/prev references some classic implementations use are
// modeled here as a flat, centrally owned slice instead, so no file
// record ever needs a back-reference into its neighbors.
type chain struct {
	mu      sync.RWMutex
	files   []*ResFile // bottom (system, if present) .. top (most recently opened)
	current RefNum
}

func newChain() *chain {
	return &chain{}
}

func (c *chain) push(rf *ResFile, asSystem bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if asSystem {
		rf.isSystem = true
		c.files = append([]*ResFile{rf}, c.files...)
	} else {
		c.files = append(c.files, rf)
	}
	c.current = rf.refNum
}

func (c *chain) remove(refNum RefNum) *ResFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.files {
		if f.refNum == refNum {
			c.files = append(c.files[:i], c.files[i+1:]...)
			if c.current == refNum {
				if len(c.files) > 0 {
					c.current = c.files[len(c.files)-1].refNum
				} else {
					c.current = 0
				}
			}
			return f
		}
	}
	return nil
}

func (c *chain) byRefNum(refNum RefNum) *ResFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.files {
		if f.refNum == refNum {
			return f
		}
	}
	return nil
}

func (c *chain) setCurrent(refNum RefNum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = refNum
}

func (c *chain) currentFile() *ResFile {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	return c.byRefNum(cur)
}

// topDown returns open files from most-recently-opened to the system
// file, the order unrestricted Get*Resource searches walk.
func (c *chain) topDown() []*ResFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ResFile, len(c.files))
	for i, f := range c.files {
		out[len(c.files)-1-i] = f
	}
	return out
}

func (c *chain) systemFile() *ResFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.files) == 0 {
		return nil
	}
	if c.files[0].isSystem {
		return c.files[0]
	}
	return nil
}
