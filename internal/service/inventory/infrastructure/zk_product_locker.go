// internal/service/inventory/infrastructure/zk_product_locker.go
package infrastructure

import (
	"strconv"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"

	"stockflow/internal/pkg/zookeeper"
	"stockflow/internal/service/inventory/domain"
)

// ZkProductLocker implements domain.ProductLocker over ZooKeeper
// ephemeral sequential nodes. It is only wired in deployments where the
// database's row locking cannot serialize all writers, e.g. when a
// second store replica accepts decrements.
type ZkProductLocker struct {
	conn *zk.Conn
}

func NewZkProductLocker(conn *zk.Conn) *ZkProductLocker {
	return &ZkProductLocker{conn: conn}
}

func (l *ZkProductLocker) LockProduct(productID int64) (func(), error) {
	lock, err := zookeeper.NewDistributedLock(l.conn, "product-"+strconv.FormatInt(productID, 10))
	if err != nil {
		return nil, errors.Wrap(err, "preparing product lock")
	}
	if err := lock.Lock(); err != nil {
		return nil, errors.Wrap(err, "acquiring product lock")
	}
	return func() { _ = lock.Unlock() }, nil
}

var _ domain.ProductLocker = (*ZkProductLocker)(nil)
