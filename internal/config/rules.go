package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRules is the classification policy written on first use. It names
// the departments and the retention criteria for each tier.
const DefaultRules = `部门识别规则：文件内容或标题含公文、机要、保密、档案、印信、信访、综合治理、会议管理、数字化管理、党建、工会、共青团、企业文化宣传、社会责任、扶贫等关键词或相关内容的归办公室（党委办公室、党委工作部）；
含劳动用工、人事管理、薪酬绩效、社保福利、教育培训、职业技能鉴定、劳动合同、职工名册、干部任免等关键词或相关内容的归人力资源部（党委组织部）；
含财务预算、决算、税务管理、会计核算、财务分析报告、银行对账单、纳税申报表等关键词或相关内容的归财务资金部；
含审计通知书、审计报告、纪检监督、违纪案件查处、内控报告等关键词或相关内容的归审计监督部(纪委办公室)；
含合同管理、工程预算、成本控制、计量支付、变更索赔、法律纠纷、诉讼调解书等关键词或相关内容的归经营管理部（法律合约部）；
含项目管理、施工许可、工程验收、生产计划、进度控制、信用评价、项目经理部成立等关键词或相关内容的归生产管理部；
含物资采购、机械设备管理、采购合同、资产购置、特种设备维保、量价成本管控等关键词或相关内容的归物资装备部；
含安全生产、职业健康、应急救援预案、环保规划、节能减排、事故调查报告等关键词或相关内容的归安全环保管理部；
含科技研发、专利管理、工法申报、质量管理、BIM技术、工程试验检测、高新技术企业申报等关键词或相关内容的归技术质量部；
含市场开发计划、项目投标、招标文件、中标通知书、区域办事处设立、履约保函等关键词或相关内容的归市场开发部；
未命中部门专属关键词或相关内容的归各部门通用归档范围。
保管期限分类规则：文件内容或标题满足涉及重要事项的会议文件、上级机关重要文件、公司战略规划、资质管理、重大合同协议、人事档案核心材料、财务决算、税务年报、会计档案保管清册、重大事件记录、重要声像资料、电子文件等条件的永久保管；
满足一般会议文件、非核心业务文件、培训资料、对标考察报告、对标检查材料、非重大奖项荣誉、一般合同协议、设备购置计划、非核心财务文件等条件的30年保管；
满足未通过的文件、日常事务性材料、短期业务记录、非重要载体材料、基层事务性文件等条件的10年保管，优先匹配永久规则，其次30年，最后10年。`

// LoadRules returns the policy text stored at path. When the file does not
// exist the default policy is written there and returned.
func LoadRules(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("reading rules file: %w", err)
		}
		if err := SaveRules(path, DefaultRules); err != nil {
			return "", err
		}
		return DefaultRules, nil
	}

	rules := strings.TrimSpace(string(data))
	if rules == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyRules)
	}
	return rules, nil
}

// SaveRules writes rules to path, creating parent directories if needed.
func SaveRules(path, rules string) error {
	rules = strings.TrimSpace(rules)
	if rules == "" {
		return ErrEmptyRules
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(rules+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing rules file: %w", err)
	}
	return nil
}

// ResetRules restores the default policy at path.
func ResetRules(path string) error {
	return SaveRules(path, DefaultRules)
}
