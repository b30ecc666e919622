package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

func TestOptionsMapping(t *testing.T) {
	cfg := &ClientConfig{
		Host:         "ch.local",
		Port:         8123,
		User:         "scan",
		Password:     "secret",
		UseHTTP:      true,
		AsyncInsert:  true,
		WaitForAsync: true,
		MaxExecTime:  90 * time.Second,
		DialTimeout:  time.Second,
	}
	o := options(cfg)
	if len(o.Addr) != 1 || o.Addr[0] != "ch.local:8123" || o.Protocol != ch.HTTP {
		t.Fatalf("addr %v protocol %v", o.Addr, o.Protocol)
	}
	if o.Auth.Username != "scan" || o.Auth.Password != "secret" {
		t.Fatalf("auth %+v", o.Auth)
	}
	if o.Settings["max_execution_time"] != 90 || o.Settings["async_insert"] != 1 || o.Settings["wait_for_async_insert"] != 1 {
		t.Fatalf("settings %v", o.Settings)
	}

	o = options(&ClientConfig{Host: "h", Port: 9000})
	if o.Protocol != ch.Native || len(o.Settings) != 0 {
		t.Fatalf("native defaults %+v", o)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without host")
	}
}
