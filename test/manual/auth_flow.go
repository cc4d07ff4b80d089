//go:build ignore

package main

// Walks the mobile authorization flow against a running server:
//
//	go run test/manual/auth_flow.go -base http://localhost:8080 -business COFFEECLUB
//
// The server must run with the log SMS sender; copy the code it prints
// when prompted. The script then confirms the OTP, reads the profile,
// rotates the pair, proves the old pair is dead, and logs out.

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

var (
	base     = flag.String("base", "http://localhost:8080", "Server base URL")
	phone    = flag.String("phone", "+79001234567", "Phone to authorize")
	business = flag.String("business", "", "Business code (required)")
)

func call(method, path, bearer string, body any) (int, map[string]any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
			os.Exit(1)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, *base+path, reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", method, path, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s %s -> %d\n%s\n\n", method, path, resp.StatusCode, raw)

	var decoded map[string]any
	json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func tokensFrom(body map[string]any) (access, refresh string) {
	t, _ := body["tokens"].(map[string]any)
	if t == nil {
		t = body
	}
	access, _ = t["access_token"].(string)
	refresh, _ = t["refresh_token"].(string)
	return access, refresh
}

func main() {
	flag.Parse()
	if *business == "" {
		fmt.Fprintln(os.Stderr, "-business is required")
		os.Exit(2)
	}

	code, _ := call("POST", "/auth", "", map[string]any{
		"phone": *phone, "realm": "mobile", "business": *business,
	})
	if code != 200 {
		os.Exit(1)
	}

	fmt.Print("OTP code from the server log: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		fmt.Fprintf(os.Stderr, "read code: %v\n", err)
		os.Exit(1)
	}
	otp := strings.TrimSpace(line)

	code, body := call("POST", "/auth/confirm", "", map[string]any{
		"phone": *phone, "otp": otp, "business": *business,
	})
	if code != 200 {
		os.Exit(1)
	}
	access, refresh := tokensFrom(body)

	call("GET", "/users/me", access, nil)
	call("GET", "/clients/me", access, nil)

	code, body = call("POST", "/tokens/refresh", "", map[string]any{"refresh_token": refresh})
	if code != 200 {
		os.Exit(1)
	}
	newAccess, _ := tokensFrom(body)

	// The rotated-out pair must be dead.
	if code, _ = call("GET", "/users/me", access, nil); code != 401 {
		fmt.Fprintln(os.Stderr, "BUG: spent access token still works")
		os.Exit(1)
	}
	if code, _ = call("POST", "/tokens/refresh", "", map[string]any{"refresh_token": refresh}); code != 400 {
		fmt.Fprintln(os.Stderr, "BUG: spent refresh token still rotates")
		os.Exit(1)
	}

	call("GET", "/tokens", newAccess, nil)
	call("POST", "/tokens/logout", newAccess, nil)

	if code, _ = call("GET", "/users/me", newAccess, nil); code != 401 {
		fmt.Fprintln(os.Stderr, "BUG: access token survives logout")
		os.Exit(1)
	}
	fmt.Println("flow complete")
}
