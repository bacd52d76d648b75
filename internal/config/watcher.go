package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// StartWatch 监听配置变化，在变更时回调 onChange(old, new)
// 与 Load 的来源链一致：优先 Nacos，其次 etcd，本地文件配置不监听
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) != "" {
		return startNacosWatch(ctx, onChange)
	}
	if strings.TrimSpace(os.Getenv("ETCD_ENDPOINTS")) != "" {
		return startEtcdWatch(ctx, onChange)
	}

	fmt.Println("[Config]  未配置远程配置中心，跳过配置监听")
	return nil
}

// applyNewConfig 解析远程配置载荷并触发回调，格式按扩展名判断
func applyNewConfig(sourceKey string, data []byte, onChange func(oldCfg, newCfg *Config)) {
	var newCfg Config
	var parseErr error
	switch filepath.Ext(sourceKey) {
	case ".json":
		parseErr = json.Unmarshal(data, &newCfg)
	case ".yaml", ".yml":
		parseErr = yaml.Unmarshal(data, &newCfg)
	default:
		// 默认尝试 YAML，失败再尝试 JSON
		parseErr = yaml.Unmarshal(data, &newCfg)
		if parseErr != nil {
			parseErr = json.Unmarshal(data, &newCfg)
		}
	}
	if parseErr != nil {
		fmt.Printf("[Config]  解析远程配置失败: source=%s, error=%v\n", sourceKey, parseErr)
		return
	}

	oldCfg := GetCurrent()
	SetCurrent(&newCfg)
	if onChange != nil {
		onChange(oldCfg, &newCfg)
	}
	fmt.Printf("[Config]  配置已更新: source=%s\n", sourceKey)
}

// startEtcdWatch 监听 etcd 配置键的变化
func startEtcdWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	key := strings.TrimSpace(os.Getenv("ETCD_CONFIG_KEY"))
	if key == "" {
		return errors.New("ETCD_CONFIG_KEY not set")
	}

	endpoints := strings.Split(os.Getenv("ETCD_ENDPOINTS"), ",")
	for i := range endpoints {
		endpoints[i] = strings.TrimSpace(endpoints[i])
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
		Username:    os.Getenv("ETCD_USERNAME"),
		Password:    os.Getenv("ETCD_PASSWORD"),
	})
	if err != nil {
		return fmt.Errorf("etcd connect failed for watch: %w", err)
	}

	go func() {
		defer cli.Close()
		ch := cli.Watch(ctx, key)
		for resp := range ch {
			if err := resp.Err(); err != nil {
				fmt.Printf("[Config]  etcd watch 异常: error=%v\n", err)
				continue
			}
			for _, ev := range resp.Events {
				if ev.Type != clientv3.EventTypePut {
					continue
				}
				applyNewConfig(key, ev.Kv.Value, onChange)
			}
		}
	}()

	fmt.Printf("[Config]  etcd 配置监听已启动: key=%s\n", key)
	return nil
}

// startNacosWatch 启动 Nacos 配置监听
func startNacosWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	// 1. 读取环境变量
	serverAddr := strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR"))
	if serverAddr == "" {
		return errors.New("NACOS_SERVER_ADDR not set")
	}

	dataID := strings.TrimSpace(os.Getenv("NACOS_DATA_ID"))
	if dataID == "" {
		return errors.New("NACOS_DATA_ID not set")
	}

	namespace := strings.TrimSpace(os.Getenv("NACOS_NAMESPACE"))
	if namespace == "" {
		namespace = "public"
	}

	group := strings.TrimSpace(os.Getenv("NACOS_GROUP"))
	if group == "" {
		group = "DEFAULT_GROUP"
	}

	username := strings.TrimSpace(os.Getenv("NACOS_USERNAME"))
	password := strings.TrimSpace(os.Getenv("NACOS_PASSWORD"))

	timeoutMS := 5000
	if timeoutStr := strings.TrimSpace(os.Getenv("NACOS_TIMEOUT_MS")); timeoutStr != "" {
		if t, err := strconv.Atoi(timeoutStr); err == nil && t > 0 {
			timeoutMS = t
		}
	}

	// 2. 解析服务器地址
	serverAddrs := strings.Split(serverAddr, ",")
	var serverConfigs []constant.ServerConfig
	for _, addr := range serverAddrs {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		parts := strings.Split(addr, ":")
		if len(parts) != 2 {
			return fmt.Errorf("invalid NACOS_SERVER_ADDR format: %s", addr)
		}
		host := parts[0]
		port, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid port in NACOS_SERVER_ADDR: %s", parts[1])
		}
		serverConfigs = append(serverConfigs, constant.ServerConfig{
			IpAddr: host,
			Port:   port,
		})
	}

	if len(serverConfigs) == 0 {
		return errors.New("no valid server address in NACOS_SERVER_ADDR")
	}

	// 3. 创建客户端配置
	clientConfig := constant.ClientConfig{
		NamespaceId:         namespace,
		TimeoutMs:           uint64(timeoutMS),
		NotLoadCacheAtStart: true,
		LogDir:              "/tmp/nacos/log",
		CacheDir:            "/tmp/nacos/cache",
		LogLevel:            "warn",
	}

	if username != "" && password != "" {
		clientConfig.Username = username
		clientConfig.Password = password
	}

	// 4. 创建配置客户端
	configClient, err := clients.NewConfigClient(
		vo.NacosClientParam{
			ClientConfig:  &clientConfig,
			ServerConfigs: serverConfigs,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create nacos config client for watch: %w", err)
	}

	// 保存全局客户端引用
	nacosConfigClient = configClient

	// 5. 启动监听
	err = configClient.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
		OnChange: func(namespace, group, dataId, data string) {
			fmt.Printf("[Config] 📡 Nacos 配置变更: namespace=%s, group=%s, dataId=%s\n",
				namespace, group, dataId)
			applyNewConfig(dataId, []byte(data), onChange)
		},
	})

	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	fmt.Printf("[Config]  Nacos 配置监听已启动: server=%s, dataId=%s, namespace=%s, group=%s\n",
		serverAddr, dataID, namespace, group)

	return nil
}
