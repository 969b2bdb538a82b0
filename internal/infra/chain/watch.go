package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// poolEvents change a pool's reserves.
var poolEvents = []string{"Swap", "AddLiquidity", "RemoveLiquidity"}

func (c *ethClientImpl) poolQuery(pools []common.Address) ethereum.FilterQuery {
	topics := make([]common.Hash, 0, len(poolEvents))
	for _, name := range poolEvents {
		topics = append(topics, c.ammABI.Events[name].ID)
	}
	return ethereum.FilterQuery{
		Addresses: pools,
		Topics:    [][]common.Hash{topics},
	}
}

// WatchPools sends the address of a pool to sink whenever a Swap,
// AddLiquidity or RemoveLiquidity log of one of pools is mined, including
// logs removed by a reorg. It subscribes when the endpoint supports
// notifications and polls for logs otherwise. ctx only bounds setting the
// watch up.
func (c *ethClientImpl) WatchPools(ctx context.Context, pools []common.Address, sink chan<- common.Address) (event.Subscription, error) {
	if len(pools) == 0 {
		return nil, errors.New("no pools to watch")
	}
	q := c.poolQuery(pools)

	logs := make(chan types.Log, 16)
	sub, err := c.backend.SubscribeFilterLogs(ctx, q, logs)
	switch {
	case err == nil:
		return event.NewSubscription(func(quit <-chan struct{}) error {
			defer sub.Unsubscribe()
			for {
				select {
				case l := <-logs:
					select {
					case sink <- l.Address:
					case <-quit:
						return nil
					}
				case err := <-sub.Err():
					return classify(err, "pool log subscription")
				case <-quit:
					return nil
				}
			}
		}), nil
	case errors.Is(err, rpc.ErrNotificationsUnsupported):
		return c.pollPools(ctx, q, sink)
	default:
		return nil, classify(err, "c.backend.SubscribeFilterLogs")
	}
}

// pollPools queries the logs of every block mined since the previous tick.
func (c *ethClientImpl) pollPools(ctx context.Context, q ethereum.FilterQuery, sink chan<- common.Address) (event.Subscription, error) {
	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return nil, classify(err, "c.backend.BlockNumber")
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()

		ticker := time.NewTicker(c.opts.PoolPoll)
		defer ticker.Stop()

		next := head + 1
		for {
			select {
			case <-quit:
				return nil
			case <-ticker.C:
			}

			latest, err := c.backend.BlockNumber(ctx)
			if err != nil {
				return classify(err, "c.backend.BlockNumber")
			}
			if latest < next {
				continue
			}

			rq := q
			rq.FromBlock = new(big.Int).SetUint64(next)
			rq.ToBlock = new(big.Int).SetUint64(latest)
			logs, err := c.backend.FilterLogs(ctx, rq)
			if err != nil {
				return classify(err, "c.backend.FilterLogs")
			}

			for _, l := range logs {
				select {
				case sink <- l.Address:
				case <-quit:
					return nil
				}
			}
			next = latest + 1
		}
	}), nil
}
