package mappersmith

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestInMemoryCacheSetGet(t *testing.T) {
	cache := NewInMemoryCache()

	cache.Set("k", &CacheEntry{Status: 200, Body: []byte("v")}, time.Minute)
	entry, ok := cache.Get("k")
	if !ok {
		t.Fatal("Expected a hit")
	}
	if entry.Status != 200 || string(entry.Body) != "v" {
		t.Errorf("Entry = %+v", entry)
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("Expected a miss for an unknown key")
	}
}

func TestInMemoryCacheExpiry(t *testing.T) {
	cache := NewInMemoryCache()
	cache.Set("k", &CacheEntry{Status: 200}, 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Error("Expired entry should miss")
	}
	if cache.Len() != 0 {
		t.Errorf("Expired entry should be dropped on lookup, Len() = %d", cache.Len())
	}
}

func TestInMemoryCacheDeleteAndClear(t *testing.T) {
	cache := NewInMemoryCache()
	for i := 0; i < 50; i++ {
		cache.Set(fmt.Sprintf("k%d", i), &CacheEntry{Status: 200}, time.Minute)
	}
	if cache.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", cache.Len())
	}

	cache.Delete("k7")
	if _, ok := cache.Get("k7"); ok {
		t.Error("Deleted entry should miss")
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Clear should empty every shard, Len() = %d", cache.Len())
	}
}

func TestInMemoryCacheConcurrent(t *testing.T) {
	cache := NewInMemoryCache()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d-%d", n, j)
				cache.Set(key, &CacheEntry{Status: 200}, time.Minute)
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if cache.Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", cache.Len())
	}
}

func TestCachedGatewayServesFromCache(t *testing.T) {
	inner := NewTestGateway(Stub{Status: 200, Body: "hello"})
	gateway := NewCachedGateway(inner, nil, time.Minute)
	req := NewRequest(RequestSpec{Host: "http://example.org", Path: "/greeting"})

	for i := 0; i < 3; i++ {
		resp, err := gateway.Call(context.Background(), req, nil)
		if err != nil {
			t.Fatalf("Call() returned error: %v", err)
		}
		if string(resp.RawBody()) != "hello" {
			t.Errorf("Body = %q", resp.RawBody())
		}
	}
	if inner.CallCount() != 1 {
		t.Errorf("Repeated GETs should hit the inner gateway once, got %d", inner.CallCount())
	}
}

func TestCachedGatewaySkipsNonGET(t *testing.T) {
	inner := NewTestGateway(Stub{Status: 201})
	gateway := NewCachedGateway(inner, nil, time.Minute)
	req := NewRequest(RequestSpec{Method: "POST", Host: "http://example.org", Path: "/items"})

	for i := 0; i < 2; i++ {
		if _, err := gateway.Call(context.Background(), req, nil); err != nil {
			t.Fatalf("Call() returned error: %v", err)
		}
	}
	if inner.CallCount() != 2 {
		t.Errorf("POST must never be cached, got %d inner calls", inner.CallCount())
	}
}

func TestCachedGatewaySkipsFailures(t *testing.T) {
	inner := NewTestGateway(Stub{Status: 503})
	gateway := NewCachedGateway(inner, nil, time.Minute)
	req := NewRequest(RequestSpec{Host: "http://example.org", Path: "/flaky"})

	for i := 0; i < 2; i++ {
		if _, err := gateway.Call(context.Background(), req, nil); err != nil {
			t.Fatalf("Call() returned error: %v", err)
		}
	}
	if inner.CallCount() != 2 {
		t.Errorf("5xx responses must not be cached, got %d inner calls", inner.CallCount())
	}
}

func TestCachedGatewayKeyFunc(t *testing.T) {
	inner := NewTestGateway(Stub{Status: 200})
	gateway := NewCachedGateway(inner, nil, time.Minute).
		WithKeyFunc(func(req *Request) string { return req.Path() })

	first := NewRequest(RequestSpec{Host: "http://example.org", Path: "/same", Params: Params{"page": 1}})
	second := NewRequest(RequestSpec{Host: "http://example.org", Path: "/same", Params: Params{"page": 2}})

	if _, err := gateway.Call(context.Background(), first, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := gateway.Call(context.Background(), second, nil); err != nil {
		t.Fatal(err)
	}
	if inner.CallCount() != 1 {
		t.Errorf("Custom key should collapse both requests, got %d inner calls", inner.CallCount())
	}
}

func TestDefaultCacheKeyFunc(t *testing.T) {
	req := NewRequest(RequestSpec{Host: "http://example.org", Path: "/users", Params: Params{"page": 2}})
	want := "GET http://example.org/users?page=2"
	if got := DefaultCacheKeyFunc(req); got != want {
		t.Errorf("DefaultCacheKeyFunc() = %q, want %q", got, want)
	}
}
