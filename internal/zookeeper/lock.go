// Package zookeeper provides the distributed per-order lock used to
// serialize confirm/cancel sagas across service instances.
package zookeeper

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

const lockRoot = "/shopcart/order_locks"

// Conn wraps a zookeeper connection.
type Conn struct {
	conn *zk.Conn
}

// Connect dials the zookeeper ensemble.
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to zookeeper")
	}
	return &Conn{conn: conn}, nil
}

func (c *Conn) Close() { c.conn.Close() }

// ensurePath creates each segment of path if missing.
func (c *Conn) ensurePath(path string) error {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	current := ""
	for _, seg := range segments {
		current += "/" + seg
		_, err := c.conn.Create(current, []byte{}, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return errors.Wrapf(err, "creating node %s", current)
		}
	}
	return nil
}

// orderLock is one acquisition attempt: an ephemeral sequential node
// under the order's lock path. The holder is the lowest sequence
// number; everyone else watches its predecessor.
type orderLock struct {
	conn     *Conn
	path     string
	lockNode string
}

func (c *Conn) newOrderLock(orderID string) (*orderLock, error) {
	path := lockRoot + "/" + orderID
	if err := c.ensurePath(path); err != nil {
		return nil, err
	}
	return &orderLock{conn: c, path: path}, nil
}

func (l *orderLock) lock(ctx context.Context) error {
	nodePath, err := l.conn.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte{}, zk.WorldACL(zk.PermAll))
	if err != nil {
		return errors.Wrap(err, "creating lock node")
	}
	l.lockNode = nodePath

	for {
		children, _, err := l.conn.conn.Children(l.path)
		if err != nil {
			return errors.Wrap(err, "listing lock nodes")
		}
		sort.Strings(children)

		myNode := strings.TrimPrefix(l.lockNode, l.path+"/")
		if myNode == children[0] {
			return nil
		}

		prev := -1
		for i, child := range children {
			if child == myNode {
				prev = i - 1
				break
			}
		}
		if prev < 0 {
			return errors.New("own lock node missing from children")
		}

		_, _, eventChan, err := l.conn.conn.ExistsW(l.path + "/" + children[prev])
		if err != nil {
			if err == zk.ErrNoNode {
				continue
			}
			return errors.Wrap(err, "watching predecessor node")
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			l.unlock()
			return ctx.Err()
		}
	}
}

func (l *orderLock) unlock() {
	if l.lockNode == "" {
		return
	}
	_ = l.conn.conn.Delete(l.lockNode, -1)
	l.lockNode = ""
}

// OrderLocker implements the application's per-order lock port on top
// of zookeeper ephemeral sequential nodes.
type OrderLocker struct {
	conn *Conn
}

func NewOrderLocker(conn *Conn) *OrderLocker {
	return &OrderLocker{conn: conn}
}

// Acquire blocks until the lock for orderID is held or ctx is done.
func (z *OrderLocker) Acquire(ctx context.Context, orderID string) (func(), error) {
	lock, err := z.conn.newOrderLock(orderID)
	if err != nil {
		return nil, err
	}
	if err := lock.lock(ctx); err != nil {
		return nil, err
	}
	return lock.unlock, nil
}
