package api

import (
	"github.com/nanjiek/pixiu-rcu/internal/rcu"
	"github.com/nanjiek/pixiu-rcu/internal/workload"
)

type ValueResponse struct {
	Generation uint64  `json:"generation"`
	Len        int     `json:"len"`
	Mean       float64 `json:"mean"`
	Values     []int   `json:"values"`
}

type UpdateRequest struct {
	Values []int `json:"values"`
}

type UpdateResponse struct {
	Updated    bool   `json:"updated"`
	Generation uint64 `json:"generation,omitempty"`
}

type StatsResponse struct {
	Variant  string                  `json:"variant"`
	Cell     rcu.Stats               `json:"cell"`
	Workload *workload.Stats         `json:"workload,omitempty"`
	Dispatch *workload.DispatchStats `json:"dispatch,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
