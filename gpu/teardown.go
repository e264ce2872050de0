// Copyright (c) 2025 Cubyte.online under the AGPL License

package gpu

// DestroyFunc adapts a plain function to Destroyer.
type DestroyFunc func()

func (f DestroyFunc) Destroy() { f() }

// Teardown is an ordered list of owned objects. Destroy releases
// them in reverse order of addition, so later objects that depend on
// earlier ones go first. The zero value is ready to use.
type Teardown struct {
	list []Destroyer
}

// Add appends owned objects. Nil entries are ignored.
func (t *Teardown) Add(ds ...Destroyer) {
	for _, d := range ds {
		if d != nil {
			t.list = append(t.list, d)
		}
	}
}

// Len returns the number of objects still owned.
func (t *Teardown) Len() int { return len(t.list) }

// Merge moves every object owned by o to the end of t.
func (t *Teardown) Merge(o *Teardown) {
	t.list = append(t.list, o.list...)
	o.list = nil
}

// Destroy releases every owned object and empties the list.
// It is safe to call more than once.
func (t *Teardown) Destroy() {
	for i := len(t.list) - 1; i >= 0; i-- {
		t.list[i].Destroy()
	}
	t.list = nil
}
