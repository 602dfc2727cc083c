package etcd

import (
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// NewClient dials an etcd cluster. The returned client backs both the
// queue repository and the execution history repository; it is never
// used for coordination (no leases, no leader election, no
// distributed locks), because partition locking in this system is
// explicitly single-process.
func NewClient(endpoints []string, timeout time.Duration) (*clientv3.Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return cli, nil
}
