package crawlers

import (
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 职责: 根据可用内存和CPU负载估算可同时运行的分片数
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// 可替换的采样函数
	availableMemory func() (uint64, error)
	cpuPercent      func() (float64, error)
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节)
	CPULoadThreshold    int   // CPU负载阈值(%), >=200 视为禁用
	MaxWorkersLimit     int   // 绝对最大并发数
	WorkerMemoryUsage   int64 // 单个浏览器会话平均内存消耗(字节)
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	AvailableMemory uint64 // 可用内存(字节)
	SafetyReserve   int64  // 安全保留内存(字节)
	MemoryPressure  string // 内存压力等级
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.WorkerMemoryUsage == 0 {
		config.WorkerMemoryUsage = 150 * 1024 * 1024 // 150MB
	}
	if config.MaxWorkersLimit <= 0 {
		config.MaxWorkersLimit = 16
	}

	return &ResourceMonitor{
		config: config,
		availableMemory: func() (uint64, error) {
			vm, err := mem.VirtualMemory()
			if err != nil {
				return 0, err
			}
			return vm.Available, nil
		},
		cpuPercent: func() (float64, error) {
			// perCPU=false 返回所有CPU的平均使用率
			percentages, err := cpu.Percent(100*time.Millisecond, false)
			if err != nil {
				return 0, err
			}
			if len(percentages) == 0 {
				return 0, fmt.Errorf("CPU使用率数据为空")
			}
			return percentages[0], nil
		},
	}
}

// MaxWorkers 基于可用内存和CPU核数计算并发上限
func (rm *ResourceMonitor) MaxWorkers() int {
	byMemory := rm.config.MaxWorkersLimit
	available, err := rm.availableMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,按配置上限计算")
	} else {
		surplus := int64(available) - rm.config.SafetyReserveMemory
		byMemory = int(surplus / rm.config.WorkerMemoryUsage)
	}

	result := byMemory
	if n := runtime.NumCPU(); n < result {
		result = n
	}
	if rm.config.MaxWorkersLimit < result {
		result = rm.config.MaxWorkersLimit
	}

	// 确保至少1个
	if result < 1 {
		result = 1
	}
	return result
}

// ClampWorkers 用资源上限收紧请求的并发数
func (rm *ResourceMonitor) ClampWorkers(requested int) int {
	limit := rm.MaxWorkers()
	if requested > limit {
		log.Warn().Msgf("请求并发数 %d 超过资源上限 %d,已下调", requested, limit)
		return limit
	}
	if requested < 1 {
		return 1
	}
	return requested
}

// CheckResourceAvailability 检查当前资源是否允许启动新会话
// 返回canCreate(是否允许创建)和reason(不允许时的原因)
func (rm *ResourceMonitor) CheckResourceAvailability() (canCreate bool, reason string) {
	available, err := rm.availableMemory()
	if err == nil && int64(available) < rm.config.SafetyReserveMemory {
		availableMB := available / (1024 * 1024)
		log.Warn().Msgf("可用内存不足(当前%dMB),会话创建受限", availableMB)
		return false, fmt.Sprintf("内存不足(当前%dMB)", availableMB)
	}

	if rm.config.CPULoadThreshold < 200 {
		usage, err := rm.cpuPercent()
		if err != nil {
			log.Warn().Err(err).Msg("获取CPU使用率失败")
		} else if usage > float64(rm.config.CPULoadThreshold) {
			return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", usage)
		}
	}

	return true, ""
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	available, err := rm.availableMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
	}

	var pressure string
	availableMB := int64(available)/(1024*1024) - rm.config.SafetyReserveMemory/(1024*1024)
	switch {
	case availableMB < 200:
		pressure = "emergency"
	case availableMB < 300:
		pressure = "critical"
	case availableMB < 500:
		pressure = "warning"
	default:
		pressure = "normal"
	}

	return MemoryStatus{
		AvailableMemory: available,
		SafetyReserve:   rm.config.SafetyReserveMemory,
		MemoryPressure:  pressure,
	}
}
