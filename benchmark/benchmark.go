package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MrFixITslu/SIWM-Shipping-Inventory---warehouse-Management-sub001/benchmark/client"
)

type idResponse struct {
	ID int64 `json:"id"`
}

type shipmentResponse struct {
	ID        int64 `json:"id"`
	LineItems []struct {
		ID int64 `json:"id"`
	} `json:"line_items"`
}

var (
	admin     = &client.Identity{UserID: "bench-admin", Role: "Admin", Name: "Bench Admin"}
	broker    = &client.Identity{UserID: "bench-broker", Role: "Broker", Name: "Bench Broker"}
	finance   = &client.Identity{UserID: "bench-finance", Role: "Finance", Name: "Bench Finance"}
	warehouse = &client.Identity{UserID: "bench-warehouse", Role: "Warehouse", Name: "Bench Warehouse"}
)

type RequestResult struct {
	Name     string
	Method   string
	Endpoint string
	Role     string
	Status   int
	Latency  time.Duration
}

// step is one request of the lifecycle run
type step struct {
	name     string
	method   string
	path     string
	endpoint string
	identity *client.Identity
	body     interface{}
}

func main() {
	baseURL := flag.String("url", "http://127.0.0.1:4000", "Base URL of the ASN service")
	iterations := flag.Int("n", 1, "Number of iterations to run")
	quantity := flag.Int("qty", 10, "Expected quantity per shipment")
	pause := flag.Duration("pause", 100*time.Millisecond, "Pause between steps")
	flag.Parse()

	filename := fmt.Sprintf("benchmark_n_%d_qty_%d.csv", *iterations, *quantity)
	file, err := os.Create(filename)
	if err != nil {
		fmt.Printf("Error creating CSV file: %v\n", err)
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Iteration", "Step", "Method", "Endpoint", "Role", "Status", "Latency_ms"}
	if err := writer.Write(header); err != nil {
		fmt.Printf("Error writing CSV header: %v\n", err)
		return
	}

	requestClient := client.NewHTTPClient(*baseURL)

	for i := 0; i < *iterations; i++ {
		fmt.Printf("\n[Iteration %d/%d]\n", i+1, *iterations)
		results := runBenchmark(requestClient, i+1, *quantity, *pause)

		for _, result := range results {
			record := []string{
				strconv.Itoa(i + 1),
				result.Name,
				result.Method,
				result.Endpoint,
				result.Role,
				strconv.Itoa(result.Status),
				strconv.FormatInt(result.Latency.Milliseconds(), 10),
			}
			if err := writer.Write(record); err != nil {
				fmt.Printf("Error writing record to CSV: %v\n", err)
			}
		}
	}

	fmt.Printf("\nBenchmark complete. Results saved to %s\n", filename)
}

// runBenchmark takes one shipment from creation to Completed. It stops at the
// first failed step and returns what was measured so far.
func runBenchmark(requestClient *client.HTTPClient, iteration, quantity int, pause time.Duration) []RequestResult {
	var results []RequestResult
	totalStart := time.Now()

	run := func(s step, target interface{}) bool {
		opts := &client.RequestOptions{Identity: s.identity, Timeout: 10 * time.Second}
		resp, err := requestClient.Call(s.method, s.path, s.body, opts)
		result := RequestResult{
			Name:     s.name,
			Method:   s.method,
			Endpoint: s.endpoint,
			Role:     s.identity.Role,
		}
		if resp != nil {
			result.Status = resp.StatusCode
			result.Latency = resp.Latency
		}
		results = append(results, result)
		if err != nil {
			fmt.Printf("%s failed: %v\n", s.name, err)
			return false
		}
		if target != nil {
			if err := client.UnmarshalBody(resp, target); err != nil {
				fmt.Printf("%s: %v\n", s.name, err)
				return false
			}
		}
		fmt.Printf("%s [Delay: %v]\n", s.name, resp.Latency)
		time.Sleep(pause)
		return true
	}

	// 1. Create inventory item
	var item idResponse
	if !run(step{
		name: "Create Item", method: "POST", path: "/inventory", endpoint: "/inventory", identity: admin,
		body: map[string]interface{}{
			"sku":  fmt.Sprintf("BENCH-%d-%d", time.Now().UnixNano(), iteration),
			"name": "Benchmark pallet",
		},
	}, &item) {
		return results
	}

	// 2. Create ASN with an assigned broker
	var asn shipmentResponse
	if !run(step{
		name: "Create ASN", method: "POST", path: "/asn", endpoint: "/asn", identity: admin,
		body: map[string]interface{}{
			"supplier":           "Benchmark Supplier",
			"carrier":            "Benchmark Carrier",
			"purchase_order_ref": fmt.Sprintf("PO-BENCH-%d", iteration),
			"expected_arrival":   time.Now().Add(72 * time.Hour).UTC(),
			"broker":             map[string]string{"user_id": broker.UserID, "name": broker.Name},
			"line_items": []map[string]interface{}{
				{"inventory_item_id": item.ID, "expected_quantity": quantity},
			},
		},
	}, &asn) {
		return results
	}
	if len(asn.LineItems) == 0 {
		fmt.Println("Create ASN returned no line items")
		return results
	}
	base := fmt.Sprintf("/asn/%d", asn.ID)

	steps := []step{
		{
			name: "Submit Fees", method: "POST", path: base + "/fees", endpoint: "/asn/:id/fees", identity: broker,
			body: map[string]string{"duties": "120.50", "shipping": "80", "storage": "15.25"},
		},
		{
			name: "Approve Fees", method: "POST", path: base + "/fees/decision", endpoint: "/asn/:id/fees/decision", identity: finance,
			body: map[string]string{"decision": "approve", "note": "benchmark"},
		},
		{
			name: "Confirm Payment", method: "POST", path: base + "/payment", endpoint: "/asn/:id/payment", identity: broker,
			body: map[string]string{"attachment_ref": fmt.Sprintf("receipt-%d.pdf", iteration)},
		},
		{name: "Mark Arrived", method: "POST", path: base + "/arrive", endpoint: "/asn/:id/arrive", identity: warehouse},
		{name: "Begin Processing", method: "POST", path: base + "/process", endpoint: "/asn/:id/process", identity: warehouse},
		{
			name: "Receive", method: "POST", path: base + "/receive", endpoint: "/asn/:id/receive", identity: warehouse,
			body: map[string]interface{}{
				"lines": []map[string]interface{}{
					{"line_item_id": asn.LineItems[0].ID, "received_quantity": quantity},
				},
			},
		},
		{name: "Complete", method: "POST", path: base + "/complete", endpoint: "/asn/:id/complete", identity: warehouse},
		{name: "Get ASN", method: "GET", path: base, endpoint: "/asn/:id", identity: finance},
		{
			name: "List Movements", method: "GET", path: fmt.Sprintf("/inventory/%d/movements", item.ID),
			endpoint: "/inventory/:id/movements", identity: warehouse,
		},
	}
	for _, s := range steps {
		if !run(s, nil) {
			return results
		}
	}

	fmt.Printf("Shipment %d completed [Total: %v]\n", asn.ID, time.Since(totalStart))
	return results
}
