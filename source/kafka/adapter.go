package kafka

import (
	"seqx/source"
)

type Adapter interface {
	source.Adapter
	Configure(Config) error
}
