package kernel

// node is an intrusive list link. The owning object embeds it and points
// value back at itself, so unlinking never allocates and never searches.
type node[T any] struct {
	next, prev *node[T]
	owner      *list[T]
	prio       Priority
	value      T
}

func (n *node[T]) linked() bool { return n.owner != nil }

// list is a doubly-linked list of intrusive nodes.
//
// A node belongs to at most one list at a time; inserting a linked node
// panics because it would corrupt both lists.
type list[T any] struct {
	head, tail *node[T]
	n          int
}

func (l *list[T]) len() int        { return l.n }
func (l *list[T]) front() *node[T] { return l.head }

func (l *list[T]) pushBack(n *node[T]) {
	l.insertBefore(n, nil)
}

// insertBefore links n in front of mark, or at the tail when mark is nil.
func (l *list[T]) insertBefore(n, mark *node[T]) {
	if n.owner != nil {
		panic("kernel: node already linked")
	}
	if mark != nil && mark.owner != l {
		panic("kernel: insert mark not in list")
	}
	n.owner = l
	n.next = mark
	if mark == nil {
		n.prev = l.tail
		if l.tail != nil {
			l.tail.next = n
		} else {
			l.head = n
		}
		l.tail = n
	} else {
		n.prev = mark.prev
		if mark.prev != nil {
			mark.prev.next = n
		} else {
			l.head = n
		}
		mark.prev = n
	}
	l.n++
}

// insertByPriority links n after every node whose prio is numerically <= n.prio,
// so equal priorities keep arrival order.
func (l *list[T]) insertByPriority(n *node[T]) {
	mark := l.head
	for mark != nil && mark.prio <= n.prio {
		mark = mark.next
	}
	l.insertBefore(n, mark)
}

func (l *list[T]) remove(n *node[T]) {
	if n.owner != l {
		panic("kernel: node not in list")
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.next, n.prev, n.owner = nil, nil, nil
	l.n--
}

// popFront unlinks and returns the head, or nil when empty.
func (l *list[T]) popFront() *node[T] {
	n := l.head
	if n != nil {
		l.remove(n)
	}
	return n
}

// values copies the list contents in order.
func (l *list[T]) values() []T {
	out := make([]T, 0, l.n)
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}
