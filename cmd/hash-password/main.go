package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"corpsite/backend/internal/auth"
)

// 生成管理员密码的 bcrypt 哈希，写入 CORPSITE_ADMIN_PASSWORD_HASH
func main() {
	password, err := readPassword(os.Args[1:], os.Stdin)
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Printf("Invalid password: %v\n", err)
		os.Exit(1)
	}

	if !auth.CheckPassword(password, hash) {
		fmt.Println("Hash verification failed")
		os.Exit(1)
	}

	fmt.Println(hash)
}

// readPassword 优先使用命令行参数，否则从标准输入读取第一行
func readPassword(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	fmt.Fprintln(os.Stderr, "Usage: hash-password <password>  (or pipe the password via stdin)")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty password")
	}
	return line, nil
}
